package attendance

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/fahry-ali/hadirku-deploy/internal/blob"
	"github.com/fahry-ali/hadirku-deploy/internal/database"
	"github.com/fahry-ali/hadirku-deploy/internal/database/mock"
	"github.com/fahry-ali/hadirku-deploy/internal/encoder"
	"github.com/fahry-ali/hadirku-deploy/internal/matcher"
)

// fakeEncoder is an in-process encoder backend for controller tests.
type fakeEncoder struct {
	backend string
	dim     int
	faces   []encoder.Face
	err     error
	block   bool // wait for context cancellation instead of answering
}

func (f *fakeEncoder) Backend() string { return f.backend }
func (f *fakeEncoder) Dim() int        { return f.dim }

func (f *fakeEncoder) EncodeAll(ctx context.Context, imageData []byte) ([]encoder.Face, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.faces, nil
}

func (f *fakeEncoder) EncodeSingle(ctx context.Context, imageData []byte) ([]float32, error) {
	faces, err := f.EncodeAll(ctx, imageData)
	if err != nil {
		return nil, err
	}
	switch len(faces) {
	case 0:
		return nil, encoder.ErrNoFace
	case 1:
		return faces[0].Embedding, nil
	default:
		return nil, encoder.ErrMultipleFaces
	}
}

// testFrame returns a small valid JPEG so the normalizer accepts it.
func testFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

func face(vec ...float32) encoder.Face {
	return encoder.Face{BBox: []float64{0, 0, 10, 10}, DetScore: 0.95, Embedding: vec}
}

type fixture struct {
	controller *Controller
	embeddings *mock.MockEmbeddingStore
	records    *mock.MockAttendanceStore
	proofs     *blob.Memory
	enc        *fakeEncoder
}

func newFixture(t *testing.T, enc *fakeEncoder) *fixture {
	t.Helper()
	f := &fixture{
		embeddings: mock.NewMockEmbeddingStore(),
		records:    mock.NewMockAttendanceStore(),
		proofs:     blob.NewMemory(),
		enc:        enc,
	}
	f.controller = NewController(Options{
		Encoder:    enc,
		Metric:     matcher.MetricEuclidean,
		Cutoff:     0.5,
		Embeddings: f.embeddings,
		Records:    f.records,
		Proofs:     f.proofs,
		MaxWidth:   640,
		Timeout:    time.Second,
	})
	return f
}

// register stores a reference embedding directly in the mock store.
func (f *fixture) register(t *testing.T, identity int64, name string, vec ...float32) {
	t.Helper()
	err := f.embeddings.SaveEmbedding(context.Background(), database.StoredEmbedding{
		Identity: identity,
		Name:     name,
		Vector:   vec,
		Backend:  f.enc.backend,
		Dim:      len(vec),
	})
	if err != nil {
		t.Fatalf("failed to seed embedding: %v", err)
	}
}

func TestSubmitAttendance_Admitted(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Admitted {
		t.Fatalf("expected admission, got rejection %s", verdict.Reason)
	}
	if verdict.Record == nil {
		t.Fatal("expected a persisted record")
	}
	if verdict.Record.Identity != 42 || verdict.Record.CourseID != 7 {
		t.Errorf("record bound to wrong keys: identity %d course %d", verdict.Record.Identity, verdict.Record.CourseID)
	}
	if verdict.Record.Status != database.StatusPresent {
		t.Errorf("expected status present, got %s", verdict.Record.Status)
	}
	if !f.proofs.Has(verdict.Record.ProofKey) {
		t.Error("expected proof image to be stored")
	}
}

func TestSubmitAttendance_BadImage(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2}
	f := newFixture(t, enc)

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, []byte("not an image"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Admitted || verdict.Reason != ReasonBadImage {
		t.Errorf("expected bad_image rejection, got %+v", verdict)
	}
}

func TestSubmitAttendance_NoFaceDetected(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Reason != ReasonNoFaceDetected {
		t.Errorf("expected no_face_detected, got %s", verdict.Reason)
	}
}

func TestSubmitAttendance_EmptyReferenceSet(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Reason != ReasonEmptyReferenceSet {
		t.Errorf("expected empty_reference_set, got %s", verdict.Reason)
	}
}

func TestSubmitAttendance_FaceNotRecognized(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(100, 100)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Reason != ReasonFaceNotRecognized {
		t.Errorf("expected face_not_recognized, got %s", verdict.Reason)
	}
}

func TestSubmitAttendance_IdentityMismatch(t *testing.T) {
	// The probe matches Siti perfectly, but the attempt is bound to Budi.
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(5, 5)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)
	f.register(t, 43, "Siti", 5, 5)

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Admitted {
		t.Fatal("a perfect match for somebody else must never admit")
	}
	if verdict.Reason != ReasonIdentityMismatch {
		t.Errorf("expected identity_mismatch, got %s", verdict.Reason)
	}
	if verdict.MatchedName != "Siti" {
		t.Errorf("expected matched display name 'Siti', got %q", verdict.MatchedName)
	}
	if len(f.records.Records()) != 0 {
		t.Error("expected no record for mismatched identity")
	}
}

func TestSubmitAttendance_MultiFaceAdmitsOnClaimedMatch(t *testing.T) {
	// Two faces: one matches nobody, one matches the claimed identity.
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{
		face(100, 100),
		face(1, 1),
	}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Admitted {
		t.Errorf("expected admission using the matching face, got %s", verdict.Reason)
	}
}

func TestSubmitAttendance_DuplicateFromPrecheck(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)

	first, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil || !first.Admitted {
		t.Fatalf("first attempt should admit, got %+v err %v", first, err)
	}

	second, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Reason != ReasonDuplicateAttendance {
		t.Errorf("expected duplicate_attendance, got %s", second.Reason)
	}
	if len(f.records.Records()) != 1 {
		t.Errorf("expected exactly one record, got %d", len(f.records.Records()))
	}
}

func TestSubmitAttendance_DuplicateFromConstraintRollsBackProof(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)

	// Simulate a losing racer: the pre-check sees nothing, the insert hits
	// the unique constraint.
	f.records.InsertError = database.ErrDuplicate

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("constraint violation must not be fatal: %v", err)
	}
	if verdict.Reason != ReasonDuplicateAttendance {
		t.Errorf("expected duplicate_attendance, got %s", verdict.Reason)
	}
	if f.proofs.Len() != 0 {
		t.Error("expected proof image rollback after rejected insert")
	}
}

func TestSubmitAttendance_ProofWriteFailure(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)
	f.proofs.PutError = errors.New("disk full")

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Reason != ReasonStorageError {
		t.Errorf("expected storage_error, got %s", verdict.Reason)
	}
	if len(f.records.Records()) != 0 {
		t.Error("no record may be created without its proof image")
	}
}

func TestSubmitAttendance_InsertFailureRollsBackProof(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)
	f.records.InsertError = errors.New("connection reset")

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Reason != ReasonStorageError {
		t.Errorf("expected storage_error, got %s", verdict.Reason)
	}
	if f.proofs.Len() != 0 {
		t.Error("expected proof image rollback after failed insert")
	}
}

func TestSubmitAttendance_Timeout(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, block: true}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)
	f.controller.timeout = 20 * time.Millisecond

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Reason != ReasonTimeout {
		t.Errorf("expected timeout, got %s", verdict.Reason)
	}
}

func TestSubmitAttendance_DayUsesConfiguredTimezone(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)

	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}
	f.controller.location = jakarta
	// 18:30 UTC is already the next day in Jakarta (UTC+7).
	f.controller.now = func() time.Time {
		return time.Date(2026, 8, 30, 18, 30, 0, 0, time.UTC)
	}

	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Admitted {
		t.Fatalf("expected admission, got %s", verdict.Reason)
	}
	if verdict.Record.Day != "2026-08-31" {
		t.Errorf("expected day 2026-08-31 in Jakarta time, got %s", verdict.Record.Day)
	}
}

func TestSubmitAttendance_GeolocationPassThrough(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)
	f.register(t, 42, "Budi", 1, 1)

	lat, lng := -7.782, 110.367
	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), &lat, &lng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Admitted {
		t.Fatalf("expected admission, got %s", verdict.Reason)
	}
	if verdict.Record.Latitude == nil || *verdict.Record.Latitude != lat {
		t.Error("expected latitude to pass through unvalidated")
	}
	if verdict.Record.Longitude == nil || *verdict.Record.Longitude != lng {
		t.Error("expected longitude to pass through unvalidated")
	}
}

func TestRegisterFace_StoresEmbedding(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 2)}}
	f := newFixture(t, enc)

	res, err := f.controller.RegisterFace(context.Background(), 42, "Budi", testFrame(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Stored {
		t.Fatalf("expected stored result, got %s", res.Reason)
	}
	if res.Backend != "descriptor" || res.Dim != 2 {
		t.Errorf("unexpected backend tag %s/%d", res.Backend, res.Dim)
	}

	emb, ok := f.embeddings.Get(42)
	if !ok {
		t.Fatal("expected embedding in store")
	}
	if emb.Vector[0] != 1 || emb.Vector[1] != 2 {
		t.Errorf("unexpected stored vector %v", emb.Vector)
	}
}

func TestRegisterFace_OverwriteKeepsLatestOnly(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 2)}}
	f := newFixture(t, enc)

	if _, err := f.controller.RegisterFace(context.Background(), 42, "Budi", testFrame(t)); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	enc.faces = []encoder.Face{face(3, 4)}
	if _, err := f.controller.RegisterFace(context.Background(), 42, "Budi", testFrame(t)); err != nil {
		t.Fatalf("second registration failed: %v", err)
	}

	if f.embeddings.Count() != 1 {
		t.Errorf("expected exactly one live embedding, got %d", f.embeddings.Count())
	}
	emb, _ := f.embeddings.Get(42)
	if emb.Vector[0] != 3 || emb.Vector[1] != 4 {
		t.Errorf("expected latest vector [3 4], got %v", emb.Vector)
	}
}

func TestRegisterFace_FailuresNeverMutateStore(t *testing.T) {
	tests := []struct {
		name   string
		faces  []encoder.Face
		reason Reason
	}{
		{"no face", nil, ReasonNoFaceDetected},
		{"two faces", []encoder.Face{face(1, 2), face(3, 4)}, ReasonMultipleFaces},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: tc.faces}
			f := newFixture(t, enc)

			res, err := f.controller.RegisterFace(context.Background(), 42, "Budi", testFrame(t))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Stored {
				t.Fatal("expected rejection")
			}
			if res.Reason != tc.reason {
				t.Errorf("expected %s, got %s", tc.reason, res.Reason)
			}
			if f.embeddings.Count() != 0 {
				t.Error("failed registration must not mutate the store")
			}
		})
	}
}

func TestRegisterFace_BadImage(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2}
	f := newFixture(t, enc)

	res, err := f.controller.RegisterFace(context.Background(), 42, "Budi", []byte{0x00})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != ReasonBadImage {
		t.Errorf("expected bad_image, got %s", res.Reason)
	}
}

func TestRegisterFace_RegistrationVisibleToNextAttempt(t *testing.T) {
	enc := &fakeEncoder{backend: "descriptor", dim: 2, faces: []encoder.Face{face(1, 1)}}
	f := newFixture(t, enc)

	// Attempt before registration: nothing to compare against.
	verdict, err := f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Reason != ReasonEmptyReferenceSet {
		t.Fatalf("expected empty_reference_set, got %s", verdict.Reason)
	}

	if _, err := f.controller.RegisterFace(context.Background(), 42, "Budi", testFrame(t)); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	// The very next attempt sees the fresh reference set.
	verdict, err = f.controller.SubmitAttendance(context.Background(), 42, 7, testFrame(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Admitted {
		t.Errorf("expected admission after registration, got %s", verdict.Reason)
	}
}
