package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"uploadapi/internal/audit"
	"uploadapi/internal/filesec"
	"uploadapi/internal/model"
	"uploadapi/internal/repository"
	repomocks "uploadapi/internal/repository/mocks"
	"uploadapi/internal/storage"
	storagemocks "uploadapi/internal/storage/mocks"
)

// collectRecorder captures events in call order for assertions.
type collectRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *collectRecorder) Record(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *collectRecorder) Close() error { return nil }

func (r *collectRecorder) kinds() []audit.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	store *storagemocks.MockStorage
	files *repomocks.MockStoredFileRepository
	evts  *repomocks.MockSecurityEventRepository
	rec   *collectRecorder
	svc   UploadService
}

func newFixture(maxBytes int64) *fixture {
	f := &fixture{
		store: new(storagemocks.MockStorage),
		files: new(repomocks.MockStoredFileRepository),
		evts:  new(repomocks.MockSecurityEventRepository),
		rec:   &collectRecorder{},
	}
	f.svc = NewUploadService(f.store, f.files, f.evts, f.rec,
		filesec.NewValidator(maxBytes), filesec.NewScanner(filesec.DefaultSignatures()...))
	return f
}

// pngPayload is a minimal byte stream the type sniffer identifies as PNG.
func pngPayload(size int) []byte {
	buf := make([]byte, size)
	copy(buf, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	return buf
}

func validInput(content []byte) UploadInput {
	return UploadInput{
		Content:       content,
		FileName:      "holiday-passport.png",
		ContentType:   "image/png",
		Size:          int64(len(content)),
		ApplicationID: "ICS2025000123",
		HasCredential: true,
		ClientIP:      "203.0.113.5",
		UserAgent:     "test-agent",
		Method:        "POST",
		Path:          "/upload/secure",
	}
}

func TestUpload_Success(t *testing.T) {
	f := newFixture(5 * 1024 * 1024)
	content := pngPayload(2048)

	f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "files/") && strings.HasSuffix(key, ".png")
	}), mock.Anything, mock.Anything).
		Return(func(_ context.Context, key string, _ io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
		}, nil)
	f.files.On("Create", mock.Anything, mock.AnythingOfType("*model.StoredFile")).
		Return(func(_ context.Context, sf *model.StoredFile) *model.StoredFile { return sf }, nil)

	stored, err := f.svc.Upload(context.Background(), validInput(content))

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.ScanStatusClean, stored.ScanStatus)
	assert.Equal(t, "holiday-passport.png", stored.OriginalName)
	assert.Equal(t, "ICS2025000123", stored.ApplicationID)
	assert.Equal(t, int64(2048), stored.Size)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}\.png$`), stored.SecureName)
	assert.Equal(t, "files/"+stored.SecureName, stored.StoragePath)

	// The stored name must share nothing with the client-supplied one.
	assert.NotContains(t, stored.SecureName, "holiday")
	assert.NotContains(t, stored.SecureName, "passport")

	assert.Equal(t, []audit.Kind{audit.KindUploadSuccess}, f.rec.kinds())
	f.store.AssertExpectations(t)
	f.files.AssertExpectations(t)
}

func TestUpload_MissingCredential(t *testing.T) {
	f := newFixture(5 * 1024 * 1024)
	in := validInput(pngPayload(64))
	in.HasCredential = false

	stored, err := f.svc.Upload(context.Background(), in)

	assert.Nil(t, stored)
	assert.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, []audit.Kind{audit.KindUploadUnauthorized}, f.rec.kinds())
	assert.Equal(t, audit.SeverityMedium, f.rec.events[0].Severity)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_NoFile(t *testing.T) {
	f := newFixture(5 * 1024 * 1024)
	in := validInput(nil)
	in.Size = 0

	stored, err := f.svc.Upload(context.Background(), in)

	assert.Nil(t, stored)
	assert.ErrorIs(t, err, ErrNoFile)
	require.Equal(t, []audit.Kind{audit.KindUploadNoFile}, f.rec.kinds())
	assert.Equal(t, audit.SeverityLow, f.rec.events[0].Severity)
}

func TestUpload_InvalidApplicationID(t *testing.T) {
	f := newFixture(5 * 1024 * 1024)
	in := validInput(pngPayload(64))
	in.ApplicationID = "../../etc/passwd"

	stored, err := f.svc.Upload(context.Background(), in)

	assert.Nil(t, stored)
	assert.ErrorIs(t, err, ErrInvalidApplicationID)
	require.Equal(t, []audit.Kind{audit.KindUploadInvalidAppID}, f.rec.kinds())

	ctx, ok := f.rec.events[0].Context.(audit.InvalidAppIDContext)
	require.True(t, ok)
	assert.Equal(t, "../../etc/passwd", ctx.ApplicationID)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_ValidationFailed(t *testing.T) {
	tests := []struct {
		name  string
		mutin func(*UploadInput)
	}{
		{
			name: "disallowed content type",
			mutin: func(in *UploadInput) {
				in.ContentType = "application/zip"
				in.FileName = "archive.zip"
			},
		},
		{
			name: "extension disagrees with declared type",
			mutin: func(in *UploadInput) {
				in.FileName = "evil.jpg.php"
			},
		},
		{
			name: "oversize payload",
			mutin: func(in *UploadInput) {
				in.Size = 11 * 1024 * 1024
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(5 * 1024 * 1024)
			in := validInput(pngPayload(64))
			tt.mutin(&in)

			stored, err := f.svc.Upload(context.Background(), in)

			assert.Nil(t, stored)
			var rej *RejectionError
			require.ErrorAs(t, err, &rej)
			assert.NotEmpty(t, rej.Reason)
			require.Equal(t, []audit.Kind{audit.KindUploadValidationFail}, f.rec.kinds())
			f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpload_MalwareDetected(t *testing.T) {
	f := newFixture(5 * 1024 * 1024)
	content := pngPayload(256)
	copy(content[32:], []byte("<script>alert(1)</script>"))
	in := validInput(content)

	stored, err := f.svc.Upload(context.Background(), in)

	assert.Nil(t, stored)
	var threat *ThreatError
	require.ErrorAs(t, err, &threat)
	assert.Equal(t, "embedded script tag", threat.Threat)

	require.Equal(t, []audit.Kind{audit.KindUploadMalwareDetected}, f.rec.kinds())
	assert.Equal(t, audit.SeverityCritical, f.rec.events[0].Severity)

	// The payload never reaches storage or the database.
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.files.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpload_StorageWriteFails(t *testing.T) {
	f := newFixture(5 * 1024 * 1024)
	content := pngPayload(128)

	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("disk full"))
	f.store.On("Delete", mock.Anything, mock.Anything).Return(nil)

	stored, err := f.svc.Upload(context.Background(), validInput(content))

	assert.Nil(t, stored)
	assert.ErrorContains(t, err, "write to storage")
	require.Equal(t, []audit.Kind{audit.KindUploadError}, f.rec.kinds())
	assert.Equal(t, audit.SeverityHigh, f.rec.events[0].Severity)

	// Partial objects are cleaned up before returning.
	f.store.AssertCalled(t, "Delete", mock.Anything, mock.Anything)
	f.files.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpload_DBSaveFailsRollsBackStorage(t *testing.T) {
	f := newFixture(5 * 1024 * 1024)
	content := pngPayload(128)

	var putKey string
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { putKey = args.String(1) }).
		Return(func(_ context.Context, key string, _ io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			return storage.ObjectInfo{Key: key, Size: opt.Size}
		}, nil)
	f.files.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed"))
	f.store.On("Delete", mock.Anything, mock.Anything).Return(nil)

	stored, err := f.svc.Upload(context.Background(), validInput(content))

	assert.Nil(t, stored)
	assert.ErrorContains(t, err, "db save failed")
	require.Equal(t, []audit.Kind{audit.KindUploadError}, f.rec.kinds())
	f.store.AssertCalled(t, "Delete", mock.Anything, putKey)
}

func TestRetrieve(t *testing.T) {
	meta := RequestMeta{
		HasCredential: true,
		ClientIP:      "10.0.0.1",
		UserAgent:     "test-agent",
		Method:        "GET",
		Path:          "/upload/secure",
	}

	t.Run("missing credential", func(t *testing.T) {
		f := newFixture(1024)
		m := meta
		m.HasCredential = false

		got, err := f.svc.Retrieve(context.Background(), "file-1", m)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, []audit.Kind{audit.KindAccessUnauthorized}, f.rec.kinds())
		f.files.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("missing file id", func(t *testing.T) {
		f := newFixture(1024)

		got, err := f.svc.Retrieve(context.Background(), "", meta)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrFileIDRequired)
		assert.Empty(t, f.rec.kinds())
	})

	t.Run("found", func(t *testing.T) {
		f := newFixture(1024)
		want := &model.StoredFile{ID: "file-1", SecureName: "abc.png"}
		f.files.On("FindByID", mock.Anything, "file-1").Return(want, nil)

		got, err := f.svc.Retrieve(context.Background(), "file-1", meta)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, []audit.Kind{audit.KindAccessRequest}, f.rec.kinds())
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(1024)
		f.files.On("FindByID", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

		got, err := f.svc.Retrieve(context.Background(), "missing", meta)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, []audit.Kind{audit.KindAccessRequest}, f.rec.kinds())
	})

	t.Run("repository error", func(t *testing.T) {
		f := newFixture(1024)
		f.files.On("FindByID", mock.Anything, "file-1").Return(nil, errors.New("db down"))

		got, err := f.svc.Retrieve(context.Background(), "file-1", meta)

		assert.Nil(t, got)
		assert.Error(t, err)
		assert.Equal(t, []audit.Kind{audit.KindAccessRequest, audit.KindAccessError}, f.rec.kinds())
	})
}

func TestListFiles(t *testing.T) {
	f := newFixture(1024)
	f.files.On("List", mock.Anything, repository.PageQuery{Limit: 10, Offset: 0}).
		Return(&repository.PageResult[model.StoredFile]{
			Items: []model.StoredFile{{ID: "file-1"}},
			Total: 1,
		}, nil)

	res, err := f.svc.ListFiles(context.Background(), 0, -5)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "file-1", res.Items[0].ID)
}

func TestListFilesCapsLimit(t *testing.T) {
	f := newFixture(1024)
	f.files.On("List", mock.Anything, repository.PageQuery{Limit: 100, Offset: 0}).
		Return(&repository.PageResult[model.StoredFile]{}, nil)

	_, err := f.svc.ListFiles(context.Background(), 1000000, 0)

	require.NoError(t, err)
	f.files.AssertExpectations(t)
}

func TestListEvents(t *testing.T) {
	f := newFixture(1024)
	f.evts.On("ListRecent", mock.Anything, 50).
		Return([]audit.Event{{ID: "ev-1", Kind: audit.KindUploadSuccess}}, nil)

	events, err := f.svc.ListEvents(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.KindUploadSuccess, events[0].Kind)
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		kind audit.Kind
		want audit.Severity
	}{
		{audit.KindUploadUnauthorized, audit.SeverityMedium},
		{audit.KindUploadNoFile, audit.SeverityLow},
		{audit.KindUploadInvalidAppID, audit.SeverityMedium},
		{audit.KindUploadValidationFail, audit.SeverityMedium},
		{audit.KindUploadMalwareDetected, audit.SeverityCritical},
		{audit.KindUploadSuccess, audit.SeverityLow},
		{audit.KindUploadError, audit.SeverityHigh},
		{audit.KindAccessUnauthorized, audit.SeverityMedium},
		{audit.KindAccessRequest, audit.SeverityLow},
		{audit.KindAccessError, audit.SeverityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFor(tt.kind), string(tt.kind))
	}
}
