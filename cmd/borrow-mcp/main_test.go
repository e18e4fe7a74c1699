package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	t.Setenv("BORROWD_URL", "http://env:8090")

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"env default", nil, "http://env:8090", false},
		{"flag wins", []string{"-endpoint", "http://flag:9000"}, "http://flag:9000", false},
		{"unknown flag", []string{"-addr", "x"}, "", true},
		{"stray argument", []string{"serve"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEndpoint(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
