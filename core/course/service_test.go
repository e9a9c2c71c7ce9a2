package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/course"
	"github.com/trezcool/masomo-records/core/material"
	"github.com/trezcool/masomo-records/core/student"
	logsvc "github.com/trezcool/masomo-records/services/logger"
	inmemdb "github.com/trezcool/masomo-records/storage/database/inmem"
	testutil "github.com/trezcool/masomo-records/tests"
)

// extractorStub returns the stored bytes as text, failing for names containing "broken".
type extractorStub struct {
	fs afero.Fs
}

func (e extractorStub) Extract(name string) (string, bool) {
	if strings.Contains(name, "broken") {
		return "", false
	}
	b, err := afero.ReadFile(e.fs, name)
	return string(b), err == nil
}

type summarizerStub struct {
	err   error
	calls int
}

func (s *summarizerStub) Summarize(_ context.Context, text string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "summary of " + text, nil
}

type env struct {
	svc        *course.Service
	repo       course.Repository
	students   student.Repository
	fs         afero.Fs
	summarizer *summarizerStub
}

func setup(t *testing.T) *env {
	t.Helper()
	logger, _ := logsvc.NewTestLogger()
	db := inmemdb.Open()
	fs := afero.NewMemMapFs()
	store := material.NewStore(fs, nil, logger)
	summ := &summarizerStub{}
	pipeline := material.NewPipeline(store, extractorStub{fs: fs}, summ, logger)
	repo := inmemdb.NewCourseRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)
	svc := course.NewService(repo, student.NewService(studentRepo), store, pipeline, logger)
	return &env{svc: svc, repo: repo, students: studentRepo, fs: fs, summarizer: summ}
}

func upload(name, content string) *course.Upload {
	return &course.Upload{Filename: name, Content: strings.NewReader(content)}
}

func exists(t *testing.T, fs afero.Fs, name string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, name)
	require.NoError(t, err)
	return ok
}

func TestService_Create(t *testing.T) {
	nc := course.NewCourse{Title: "Go", StartDate: "2024-09-02"}

	tests := []struct {
		name        string
		upload      *course.Upload
		summErr     error
		wantPath    string // relative to the course namespace
		wantSummary null.String
		wantOK      bool
		wantWarning string
	}{
		{name: "no material", wantOK: true},
		{name: "text material", upload: upload("notes.txt", "hello"), wantPath: "notes.txt", wantOK: true},
		{
			name:        "pdf material",
			upload:      upload("My Notes.PDF", "pdf text"),
			wantPath:    "My_Notes.PDF",
			wantSummary: null.StringFrom("summary of pdf text"),
			wantOK:      true,
		},
		{
			name:        "extraction failure",
			upload:      upload("broken.pdf", "x"),
			wantPath:    "broken.pdf",
			wantSummary: null.StringFrom("Error: Failed to extract text from PDF."),
			wantWarning: "Material saved, but its summary could not be generated: Error: Failed to extract text from PDF.",
		},
		{
			name:        "summarizer failure",
			upload:      upload("notes.pdf", "x"),
			summErr:     &material.SummaryError{Kind: material.MissingCredentials},
			wantPath:    "notes.pdf",
			wantSummary: null.StringFrom((&material.SummaryError{Kind: material.MissingCredentials}).Error()),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			e.summarizer.err = tt.summErr

			res, err := e.svc.Create(context.Background(), nc, "creator", tt.upload)
			require.NoError(t, err)

			c := res.Course
			assert.Equal(t, tt.wantOK, res.SummaryOK)
			assert.Equal(t, tt.wantSummary, c.MaterialSummary)
			assert.Equal(t, null.StringFrom("creator"), c.UserID)
			assert.Equal(t, "2024-09-02", c.StartDate.Format(core.DateLayout))
			if tt.wantPath == "" {
				assert.False(t, c.MaterialPath.Valid)
			} else {
				assert.Equal(t, c.ID+"/"+tt.wantPath, c.MaterialPath.String)
				assert.True(t, exists(t, e.fs, c.MaterialPath.String))
			}
			if tt.wantWarning != "" {
				assert.Equal(t, []string{tt.wantWarning}, res.Warnings)
			}
			if !tt.wantOK {
				assert.Len(t, res.Warnings, 1)
			}

			stored, err := e.svc.Get(context.Background(), c.ID)
			require.NoError(t, err)
			assert.Equal(t, c, stored)
		})
	}
}

func TestService_Create_rejectedUpload(t *testing.T) {
	e := setup(t)

	_, err := e.svc.Create(context.Background(), course.NewCourse{Title: "Go", StartDate: "2024-09-02"}, "", upload("virus.exe", "x"))
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
	assert.True(t, errors.Is(err, material.ErrUnsupportedExtension))

	courses, err := e.svc.Query(context.Background())
	require.NoError(t, err)
	assert.Empty(t, courses)
	files, err := afero.ReadDir(e.fs, "/")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, e.summarizer.calls)
}

type failingCreateRepo struct {
	course.Repository
}

func (failingCreateRepo) CreateCourse(context.Context, course.Course) (course.Course, error) {
	return course.Course{}, errors.New("db down")
}

func TestService_Create_persistFailureRemovesFile(t *testing.T) {
	logger, logs := logsvc.NewTestLogger()
	db := inmemdb.Open()
	fs := afero.NewMemMapFs()
	store := material.NewStore(fs, nil, logger)
	pipeline := material.NewPipeline(store, extractorStub{fs: fs}, &summarizerStub{}, logger)
	svc := course.NewService(failingCreateRepo{inmemdb.NewCourseRepository(db)}, student.NewService(inmemdb.NewStudentRepository(db)), store, pipeline, logger)

	_, err := svc.Create(context.Background(), course.NewCourse{Title: "Go", StartDate: "2024-09-02"}, "", upload("notes.txt", "x"))
	require.EqualError(t, err, "creating course: db down")

	var written []string
	for _, entry := range logs.FilterMessage("material stored").All() {
		written = append(written, entry.ContextMap()["path"].(string))
	}
	require.Len(t, written, 1)
	assert.False(t, exists(t, fs, written[0]))
}

func TestService_Update(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	res, err := e.svc.Create(ctx, course.NewCourse{Title: "Go", StartDate: "2024-09-02"}, "", upload("old.pdf", "old"))
	require.NoError(t, err)
	orig := res.Course
	require.False(t, orig.UserID.Valid)

	t.Run("fields only", func(t *testing.T) {
		res, err := e.svc.Update(ctx, orig.ID, course.UpdateCourse{Title: "Advanced Go"}, "editor", nil)
		require.NoError(t, err)
		assert.Equal(t, "Advanced Go", res.Course.Title)
		assert.True(t, res.Course.StartDate.Equal(orig.StartDate))
		assert.Equal(t, null.StringFrom("editor"), res.Course.UserID)
		assert.Equal(t, orig.MaterialPath, res.Course.MaterialPath)
		assert.Equal(t, orig.MaterialSummary, res.Course.MaterialSummary)
	})

	t.Run("creator is kept", func(t *testing.T) {
		res, err := e.svc.Update(ctx, orig.ID, course.UpdateCourse{StartDate: "2025-01-06"}, "someone-else", nil)
		require.NoError(t, err)
		assert.Equal(t, null.StringFrom("editor"), res.Course.UserID)
		assert.Equal(t, "2025-01-06", res.Course.StartDate.Format(core.DateLayout))
	})

	t.Run("material replaced", func(t *testing.T) {
		res, err := e.svc.Update(ctx, orig.ID, course.UpdateCourse{}, "", upload("new.txt", "new"))
		require.NoError(t, err)
		assert.Equal(t, orig.ID+"/new.txt", res.Course.MaterialPath.String)
		assert.False(t, res.Course.MaterialSummary.Valid)
		assert.True(t, res.SummaryOK)
		assert.Empty(t, res.Warnings)
		assert.False(t, exists(t, e.fs, orig.MaterialPath.String))
		assert.True(t, exists(t, e.fs, res.Course.MaterialPath.String))
	})

	t.Run("rejected upload keeps current material", func(t *testing.T) {
		before, err := e.svc.Get(ctx, orig.ID)
		require.NoError(t, err)

		_, err = e.svc.Update(ctx, orig.ID, course.UpdateCourse{Title: "ignored"}, "", upload("new", "x"))
		assert.True(t, core.IsValidationError(err))

		after, err := e.svc.Get(ctx, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.True(t, exists(t, e.fs, after.MaterialPath.String))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := e.svc.Update(ctx, "missing", course.UpdateCourse{}, "", nil)
		assert.Equal(t, course.ErrNotFound, err)
	})
}

func TestService_RegenerateSummary(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	bare := testutil.CreateCourse(t, e.repo, "Bare", "2024-01-01")
	_, err := e.svc.RegenerateSummary(ctx, bare.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, course.ErrNoMaterial))

	gone := testutil.CreateCourse(t, e.repo, "Gone", "2024-01-01", "gone/notes.pdf")
	res, err := e.svc.RegenerateSummary(ctx, gone.ID)
	require.NoError(t, err)
	assert.False(t, res.SummaryOK)
	assert.Equal(t, null.StringFrom("Error: PDF file not found for summarization."), res.Course.MaterialSummary)

	require.NoError(t, afero.WriteFile(e.fs, "gone/notes.pdf", []byte("back"), 0644))
	res, err = e.svc.RegenerateSummary(ctx, gone.ID)
	require.NoError(t, err)
	assert.True(t, res.SummaryOK)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, null.StringFrom("summary of back"), res.Course.MaterialSummary)
}

func TestService_Delete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	res, err := e.svc.Create(ctx, course.NewCourse{Title: "Go", StartDate: "2024-09-02"}, "", upload("notes.txt", "x"))
	require.NoError(t, err)
	c := res.Course
	s := testutil.CreateStudent(t, e.students, "Ada", "Lovelace", "ada@example.com")
	testutil.Enroll(t, e.repo, c, s)

	res, err = e.svc.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.False(t, exists(t, e.fs, c.MaterialPath.String))
	assert.False(t, exists(t, e.fs, c.ID), "course upload directory is removed")

	_, err = e.svc.Get(ctx, c.ID)
	assert.Equal(t, course.ErrNotFound, err)
	enrollments, err := e.svc.StudentEnrollments(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, enrollments)

	_, err = e.svc.Delete(ctx, c.ID)
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_Delete_missingFile(t *testing.T) {
	e := setup(t)
	c := testutil.CreateCourse(t, e.repo, "Go", "2024-09-02", "nowhere/notes.txt")

	res, err := e.svc.Delete(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}
