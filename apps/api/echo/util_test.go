package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/course"
	"github.com/trezcool/masomo-records/core/material"
	"github.com/trezcool/masomo-records/core/student"
	"github.com/trezcool/masomo-records/core/user"
	emailsvc "github.com/trezcool/masomo-records/services/email"
	logsvc "github.com/trezcool/masomo-records/services/logger"
	inmemdb "github.com/trezcool/masomo-records/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// generatorStub answers every request with reply, or fails with err.
type generatorStub struct {
	reply material.Reply
	err   error
	calls int
}

func (g *generatorStub) Generate(context.Context, material.Request) (material.Reply, error) {
	g.calls++
	if g.err != nil {
		return material.Reply{}, g.err
	}
	return g.reply, nil
}

type testEnv struct {
	srv         *Server
	conf        *core.Config
	usrRepo     user.Repository
	studentRepo student.Repository
	courseRepo  course.Repository
	fs          afero.Fs
	mailSvc     *emailsvc.ServiceMock
	gen         *generatorStub
	logs        *observer.ObservedLogs
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := core.NewTestConfig()
	conf.AI.GoogleAPIKey = "test-key"
	logger, logs := logsvc.NewTestLogger()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)

	// set up material pipeline
	fs := afero.NewMemMapFs()
	store := material.NewStore(fs, conf.Uploads.AllowedExtensions, logger)
	gen := &generatorStub{reply: material.Reply{Kind: material.ReplyText, Text: "A short summary."}}
	summarizer := material.NewSummarizer(gen, conf.AI.Model, conf.AI.GoogleAPIKey, conf.AI.Timeout, logger)
	pipeline := material.NewPipeline(store, material.NewPDFExtractor(fs, logger), summarizer, logger)

	// set up services
	mailSvc := emailsvc.NewServiceMock()
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	studentSvc := student.NewService(studentRepo)

	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    user.NewService(usrRepo, mailSvc, conf),
		StudentSvc: studentSvc,
		CourseSvc:  course.NewService(courseRepo, studentSvc, store, pipeline, logger),
		Store:      store,
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{
		srv:         srv,
		conf:        conf,
		usrRepo:     usrRepo,
		studentRepo: studentRepo,
		courseRepo:  courseRepo,
		fs:          fs,
		mailSvc:     mailSvc,
		gen:         gen,
		logs:        logs,
	}
}

func (env *testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.srv.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newMultipartRequest builds a multipart form with fields, plus a `material` part when filename is set.
func newMultipartRequest(
	t *testing.T,
	method, path, token string,
	fields map[string]string,
	filename string,
	content []byte,
) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile(materialField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, env *testEnv, usr user.User) string {
	token, err := env.srv.auth.generateToken(env.srv.auth.userClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func makePDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	for _, text := range pages {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		doc.Cell(40, 10, text)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}
