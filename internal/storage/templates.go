package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bookify/apiserver/types"
)

// TemplateStore keeps email templates as JSON objects under
// <prefix>/<name>.json in an ObjectStorage bucket.
type TemplateStore struct {
	backend ObjectStorage
	prefix  string
}

func NewTemplateStore(backend ObjectStorage, prefix string) *TemplateStore {
	return &TemplateStore{backend: backend, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key of the named template.
func (s *TemplateStore) Key(name string) string {
	return path.Join(s.prefix, name+".json")
}

// GetByName loads and decodes the named template.
func (s *TemplateStore) GetByName(ctx context.Context, name string) (types.EmailTemplate, error) {
	rc, err := s.backend.Get(ctx, s.Key(name))
	if err != nil {
		return types.EmailTemplate{}, fmt.Errorf("get template %s: %w", name, err)
	}
	defer rc.Close()

	var tmpl types.EmailTemplate
	if err := json.NewDecoder(rc).Decode(&tmpl); err != nil {
		return types.EmailTemplate{}, fmt.Errorf("decode template %s: %w", name, err)
	}
	if tmpl.Name == "" {
		tmpl.Name = name
	}
	return tmpl, nil
}

// Upload stores tmpl under its name, creating the bucket when missing.
func (s *TemplateStore) Upload(ctx context.Context, tmpl types.EmailTemplate) error {
	if strings.TrimSpace(tmpl.Name) == "" {
		return errors.New("template name is required")
	}
	if err := s.backend.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.backend.Bucket(), err)
	}

	data, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("encode template %s: %w", tmpl.Name, err)
	}
	if err := s.backend.Put(ctx, s.Key(tmpl.Name), bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("put template %s: %w", tmpl.Name, err)
	}
	return nil
}

// Remove deletes the named template.
func (s *TemplateStore) Remove(ctx context.Context, name string) error {
	return s.backend.Delete(ctx, s.Key(name))
}
