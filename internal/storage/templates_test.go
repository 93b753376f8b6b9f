package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	objects      map[string][]byte
	contentTypes map[string]string
	ensured      bool
	ensureErr    error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memObjects) EnsureBucket(context.Context) error {
	m.ensured = true
	return m.ensureErr
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Bucket() string { return "bookify" }

func TestTemplateStore_UploadAndGet(t *testing.T) {
	objects := newMemObjects()
	templates := NewTemplateStore(objects, "/email-templates/")
	ctx := context.Background()

	tmpl := types.EmailTemplate{
		Name:    types.TemplateUserRegistration,
		Subject: "Confirm your account",
		Body:    `<a href="{0}">confirm</a> {1}`,
	}
	require.NoError(t, templates.Upload(ctx, tmpl))

	assert.True(t, objects.ensured)
	assert.Equal(t, "email-templates/UserRegistration.json", templates.Key(tmpl.Name))
	assert.Equal(t, "application/json", objects.contentTypes[templates.Key(tmpl.Name)])

	got, err := templates.GetByName(ctx, types.TemplateUserRegistration)
	require.NoError(t, err)
	assert.Equal(t, tmpl, got)

	require.NoError(t, templates.Remove(ctx, tmpl.Name))
	_, err = templates.GetByName(ctx, tmpl.Name)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestTemplateStore_NameDefaultsToKey(t *testing.T) {
	objects := newMemObjects()
	objects.objects["welcome.json"] = []byte(`{"subject":"Hi","body":"{0}"}`)

	got, err := NewTemplateStore(objects, "").GetByName(context.Background(), "welcome")
	require.NoError(t, err)
	assert.Equal(t, "welcome", got.Name)
	assert.Equal(t, "Hi", got.Subject)
}

func TestTemplateStore_Errors(t *testing.T) {
	objects := newMemObjects()
	templates := NewTemplateStore(objects, "t")

	assert.Error(t, templates.Upload(context.Background(), types.EmailTemplate{}))

	objects.ensureErr = errors.New("denied")
	err := templates.Upload(context.Background(), types.EmailTemplate{Name: "x"})
	assert.ErrorContains(t, err, "denied")

	objects.objects["t/broken.json"] = []byte("{")
	_, err = templates.GetByName(context.Background(), "broken")
	assert.True(t, strings.Contains(err.Error(), "decode template broken"))
}

func TestNewMinioClient_Validation(t *testing.T) {
	_, err := NewMinioClient(config.MinioConfig{})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")

	_, err = NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")

	client, err := NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "bookify"})
	require.NoError(t, err)
	assert.Equal(t, "bookify", client.Bucket())
}

func TestNewGCSClient_RequiresBucket(t *testing.T) {
	_, err := NewGCSClient(context.Background(), config.GCSConfig{})
	assert.ErrorContains(t, err, "bucket")
}
