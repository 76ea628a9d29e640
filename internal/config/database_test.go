package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPostgresConnection_Invalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty_url", ""},
		{"malformed_url", "invalid://malformed"},
		{"unreachable_host", "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := NewPostgresConnection(tt.url, 2*time.Second)
			assert.Error(t, err)
			assert.Nil(t, db)
		})
	}
}
