// Package attendance orchestrates the face-matching admission pipeline:
// normalize the frame, encode faces, match against the reference set, verify
// the claimed identity, suppress duplicates and persist the record with its
// proof image.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fahry-ali/hadirku-deploy/internal/blob"
	"github.com/fahry-ali/hadirku-deploy/internal/constants"
	"github.com/fahry-ali/hadirku-deploy/internal/database"
	"github.com/fahry-ali/hadirku-deploy/internal/encoder"
	"github.com/fahry-ali/hadirku-deploy/internal/imaging"
	"github.com/fahry-ali/hadirku-deploy/internal/matcher"
	"github.com/fahry-ali/hadirku-deploy/internal/metrics"
)

// Controller runs registration and attendance attempts. Each attempt is an
// independent unit of work; the only shared state is the persistent store.
type Controller struct {
	encoder    encoder.Encoder
	metric     matcher.Metric
	cutoff     float64
	embeddings database.EmbeddingWriter
	records    database.AttendanceWriter
	proofs     blob.Store
	location   *time.Location
	maxWidth   int
	timeout    time.Duration
	now        func() time.Time
}

// Options configures a Controller.
type Options struct {
	Encoder    encoder.Encoder
	Metric     matcher.Metric
	Cutoff     float64
	Embeddings database.EmbeddingWriter
	Records    database.AttendanceWriter
	Proofs     blob.Store
	Location   *time.Location // timezone for the attendance calendar day
	MaxWidth   int            // normalizer working width
	Timeout    time.Duration  // budget for the encode+match path
	Now        func() time.Time
}

// NewController creates a Controller. Location defaults to UTC, Now to
// time.Now, MaxWidth to 640 and Timeout to 10s when unset.
func NewController(opts Options) *Controller {
	c := &Controller{
		encoder:    opts.Encoder,
		metric:     opts.Metric,
		cutoff:     opts.Cutoff,
		embeddings: opts.Embeddings,
		records:    opts.Records,
		proofs:     opts.Proofs,
		location:   opts.Location,
		maxWidth:   opts.MaxWidth,
		timeout:    opts.Timeout,
		now:        opts.Now,
	}
	if c.location == nil {
		c.location = time.UTC
	}
	if c.maxWidth <= 0 {
		c.maxWidth = 640
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// timedOut reports whether an encoder error was caused by the attempt budget.
func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// RegisterFace encodes exactly one face from the frame and stores it as the
// identity's live embedding, overwriting any previous one. A failed attempt
// never mutates the store.
func (c *Controller) RegisterFace(ctx context.Context, identity int64, name string, frame []byte) (RegistrationResult, error) {
	res, err := c.registerFace(ctx, identity, name, frame)
	if err != nil {
		metrics.RegistrationVerdicts.WithLabelValues("error").Inc()
		return res, err
	}
	if res.Stored {
		metrics.RegistrationVerdicts.WithLabelValues("stored").Inc()
	} else {
		metrics.RegistrationVerdicts.WithLabelValues(string(res.Reason)).Inc()
	}
	return res, nil
}

func (c *Controller) registerFace(ctx context.Context, identity int64, name string, frame []byte) (RegistrationResult, error) {
	normalized, err := imaging.Normalize(frame, c.maxWidth)
	if err != nil {
		return registrationRejected(ReasonBadImage), nil
	}

	encodeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	vector, err := c.encoder.EncodeSingle(encodeCtx, normalized)
	metrics.EncodeDuration.WithLabelValues(c.encoder.Backend()).Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, encoder.ErrNoFace):
		return registrationRejected(ReasonNoFaceDetected), nil
	case errors.Is(err, encoder.ErrMultipleFaces):
		return registrationRejected(ReasonMultipleFaces), nil
	case err != nil:
		if timedOut(encodeCtx, err) {
			return registrationRejected(ReasonTimeout), nil
		}
		return RegistrationResult{}, fmt.Errorf("encode registration frame: %w", err)
	}

	emb := database.StoredEmbedding{
		Identity: identity,
		Name:     name,
		Vector:   vector,
		Backend:  c.encoder.Backend(),
		Dim:      c.encoder.Dim(),
	}
	if err := c.embeddings.SaveEmbedding(ctx, emb); err != nil {
		return RegistrationResult{}, fmt.Errorf("save embedding: %w", err)
	}

	return RegistrationResult{Stored: true, Backend: emb.Backend, Dim: emb.Dim}, nil
}

// SubmitAttendance runs the full admission state machine for one attempt.
// Expected outcomes come back as a Verdict; only unexpected backend failures
// are returned as an error.
func (c *Controller) SubmitAttendance(ctx context.Context, identity, courseID int64, frame []byte, lat, lng *float64) (Verdict, error) {
	verdict, err := c.submitAttendance(ctx, identity, courseID, frame, lat, lng)
	if err != nil {
		metrics.AttendanceVerdicts.WithLabelValues("error").Inc()
		return verdict, err
	}
	if verdict.Admitted {
		metrics.AttendanceVerdicts.WithLabelValues("admitted").Inc()
	} else {
		metrics.AttendanceVerdicts.WithLabelValues(string(verdict.Reason)).Inc()
	}
	return verdict, nil
}

func (c *Controller) submitAttendance(ctx context.Context, identity, courseID int64, frame []byte, lat, lng *float64) (Verdict, error) {
	// Normalized
	normalized, err := imaging.Normalize(frame, c.maxWidth)
	if err != nil {
		return rejected(ReasonBadImage), nil
	}

	// Probed: the encoder call dominates latency, so the attempt budget
	// covers encode plus match.
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	faces, err := c.encoder.EncodeAll(attemptCtx, normalized)
	metrics.EncodeDuration.WithLabelValues(c.encoder.Backend()).Observe(time.Since(start).Seconds())
	if err != nil {
		if timedOut(attemptCtx, err) {
			return rejected(ReasonTimeout), nil
		}
		return Verdict{}, fmt.Errorf("encode attendance frame: %w", err)
	}
	if len(faces) == 0 {
		return rejected(ReasonNoFaceDetected), nil
	}

	// Matched: the reference set is re-read for every attempt so matching
	// always reflects the latest registrations.
	refs, err := c.embeddings.LoadReferenceSet(attemptCtx)
	if err != nil {
		if timedOut(attemptCtx, err) {
			return rejected(ReasonTimeout), nil
		}
		return Verdict{}, fmt.Errorf("load reference set: %w", err)
	}

	var mismatch *matcher.Match
	var verified bool
	for _, face := range faces {
		match, err := matcher.FindBestMatch(face.Embedding, c.encoder.Backend(), refs, c.metric, c.cutoff)
		if errors.Is(err, matcher.ErrEmptyReferenceSet) {
			return rejected(ReasonEmptyReferenceSet), nil
		}
		if err != nil {
			return Verdict{}, fmt.Errorf("match face: %w", err)
		}
		if match == nil {
			continue
		}
		// Verified: the attempt is bound to the claimed identity. A face
		// matching the claimed identity admits even when another detected
		// face matches nobody or somebody else.
		if match.Identity == identity {
			verified = true
			break
		}
		if mismatch == nil {
			mismatch = match
		}
	}
	if !verified {
		if mismatch != nil {
			return Verdict{Reason: ReasonIdentityMismatch, MatchedName: mismatch.Name}, nil
		}
		return rejected(ReasonFaceNotRecognized), nil
	}

	// Duplicate pre-check for the friendly early rejection. The unique
	// constraint below stays authoritative against races.
	now := c.now().In(c.location)
	day := now.Format(constants.DayFormat)
	exists, err := c.records.RecordExists(ctx, identity, courseID, day)
	if err != nil {
		return Verdict{}, fmt.Errorf("check duplicate attendance: %w", err)
	}
	if exists {
		return rejected(ReasonDuplicateAttendance), nil
	}

	// Admitted: proof image first, then the record, so a record is never
	// created without its proof image.
	proofKey := fmt.Sprintf("%s/%s.jpg", day, uuid.NewString())
	if err := c.proofs.Put(ctx, proofKey, frame, "image/jpeg"); err != nil {
		log.Printf("attendance: proof image write failed: %v", err)
		return rejected(ReasonStorageError), nil
	}

	rec := &database.AttendanceRecord{
		Identity:  identity,
		CourseID:  courseID,
		Day:       day,
		Timestamp: now,
		Latitude:  lat,
		Longitude: lng,
		ProofKey:  proofKey,
		Status:    database.StatusPresent,
	}
	if err := c.records.InsertRecord(ctx, rec); err != nil {
		// Roll back the proof image so no orphan blob remains.
		if delErr := c.proofs.Delete(ctx, proofKey); delErr != nil {
			log.Printf("attendance: proof image rollback failed for %s: %v", proofKey, delErr)
		}
		if errors.Is(err, database.ErrDuplicate) {
			return rejected(ReasonDuplicateAttendance), nil
		}
		log.Printf("attendance: record insert failed: %v", err)
		return rejected(ReasonStorageError), nil
	}

	return Verdict{Admitted: true, Record: rec}, nil
}
