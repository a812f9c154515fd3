package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "kycflow/internal/jwt_token"
	"kycflow/internal/platform/config"
)

func TestRunDemo(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runDemo(ctx, &out, slog.New(slog.NewTextHandler(io.Discard, nil)), 50*time.Millisecond)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[0], "status=in_progress step=personal completion=0%")
	assert.Contains(t, lines[1], "step=documents completion=25%")
	assert.Contains(t, lines[2], "step=address completion=50%")
	assert.Contains(t, lines[3], "step=review completion=75%")
	assert.Contains(t, lines[4], "status=submitted step=review completion=100%")
	assert.Contains(t, lines[5], "status=approved")
}

func TestTokenCommand(t *testing.T) {
	cfg := config.Server{JWTSigningKey: "test-signing-key"}
	applicant := uuid.New()

	var out bytes.Buffer
	cmd := newRootCommand(cfg)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--applicant", applicant.String(), "--ttl", "5m"})
	require.NoError(t, cmd.Execute())

	svc := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
	claims, err := svc.ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, applicant, claims.ApplicantID())
}

func TestTokenCommandRejectsBadApplicant(t *testing.T) {
	cmd := newRootCommand(config.Server{JWTSigningKey: "k"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"token", "--applicant", "nope"})
	assert.Error(t, cmd.Execute())
}
