package directdb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/sources"
)

type staticResolver struct {
	secrets map[string]string
}

func (r *staticResolver) Resolve(_ context.Context, name string) (string, error) {
	value, ok := r.secrets[name]
	if !ok {
		return "", errors.New("secret not found")
	}
	return value, nil
}

func TestBuildDSN(t *testing.T) {
	t.Run("postgres with default port", func(t *testing.T) {
		driver, dsn, err := buildDSN(&models.SourceConfig{
			DBKind:   "postgres",
			Host:     "10.0.0.5",
			Database: "pharmacy",
			Username: "readonly",
		}, "s3cret")
		assert.NoError(t, err)
		assert.Equal(t, "postgres", driver)
		assert.Equal(t, "host=10.0.0.5 port=5432 dbname=pharmacy user=readonly password=s3cret sslmode=require", dsn)
	})

	t.Run("mysql with explicit port", func(t *testing.T) {
		driver, dsn, err := buildDSN(&models.SourceConfig{
			DBKind:   "MySQL",
			Host:     "10.0.0.5",
			Port:     3307,
			Database: "marg",
			Username: "readonly",
		}, "s3cret")
		assert.NoError(t, err)
		assert.Equal(t, "mysql", driver)
		assert.Equal(t, "readonly:s3cret@tcp(10.0.0.5:3307)/marg?parseTime=true", dsn)
	})

	t.Run("unsupported kind", func(t *testing.T) {
		_, _, err := buildDSN(&models.SourceConfig{DBKind: "sqlserver"}, "")
		var unsupported *sources.UnsupportedSourceKindError
		assert.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "sqlserver", unsupported.Kind)
	})
}

func TestResolvePassword(t *testing.T) {
	resolver := &staticResolver{secrets: map[string]string{"marg-db-password": "fromsecret"}}

	t.Run("secret reference wins over inline password", func(t *testing.T) {
		r := NewReader(1, resolver)
		password, err := r.resolvePassword(context.Background(), &models.SourceConfig{
			Password:       "inline",
			PasswordSecret: "marg-db-password",
		})
		assert.NoError(t, err)
		assert.Equal(t, "fromsecret", password)
	})

	t.Run("inline password without a secret reference", func(t *testing.T) {
		r := NewReader(1, resolver)
		password, err := r.resolvePassword(context.Background(), &models.SourceConfig{
			Password: "inline",
		})
		assert.NoError(t, err)
		assert.Equal(t, "inline", password)
	})

	t.Run("secret reference without a resolver falls back to inline", func(t *testing.T) {
		r := NewReader(1, nil)
		password, err := r.resolvePassword(context.Background(), &models.SourceConfig{
			Password:       "inline",
			PasswordSecret: "marg-db-password",
		})
		assert.NoError(t, err)
		assert.Equal(t, "inline", password)
	})

	t.Run("missing secret is an error", func(t *testing.T) {
		r := NewReader(1, resolver)
		_, err := r.resolvePassword(context.Background(), &models.SourceConfig{
			PasswordSecret: "unknown",
		})
		assert.Error(t, err)
	})
}

func TestPullRequiresQuery(t *testing.T) {
	r := NewReader(1, nil)
	_, err := r.Pull(context.Background(), &models.SourceConfig{
		DBKind: "postgres",
		Host:   "10.0.0.5",
		Query:  "   ",
	})
	assert.ErrorContains(t, err, "query")
}
