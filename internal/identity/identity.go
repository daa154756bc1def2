// Package identity issues each cordon worker an opaque identifier used
// in SecurityContext.NamespaceHandles. Grounded on the teacher's
// internal/identity.SPIFFEVerifier: when a SPIRE workload API socket is
// configured, workers are issued real SPIFFE SVIDs; otherwise the
// package falls back to a locally-generated opaque ID rather than
// hard-depending on an external SPIRE deployment.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// Issuer hands out worker identities, preferring SPIFFE when available.
type Issuer struct {
	source *workloadapi.X509Source
	logger *slog.Logger
}

// NewIssuer attempts to connect to a SPIRE agent at socketPath. A
// connection failure is not fatal: it returns a fallback-only Issuer and
// logs a warning, mirroring the teacher's timeout-bounded connect.
func NewIssuer(socketPath string, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "identity.issuer")

	if socketPath == "" {
		return &Issuer{logger: logger}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	source, err := workloadapi.NewX509Source(ctx, workloadapi.WithClientOptions(workloadapi.WithAddr(socketPath)))
	if err != nil {
		logger.Warn("spire agent unavailable, falling back to opaque local identity", "socket_path", socketPath, "error", err)
		return &Issuer{logger: logger}
	}
	logger.Info("connected to spire agent", "socket_path", socketPath)
	return &Issuer{source: source, logger: logger}
}

// Identity is what a worker carries into its SecurityContext: either a
// verified SPIFFE SVID hash, or a locally-generated opaque ID.
type Identity struct {
	ID     string
	SPIFFE bool
}

// Issue returns an Identity for a newly spawned worker.
func (i *Issuer) Issue() Identity {
	if i.source != nil {
		if svid, err := i.source.GetX509SVID(); err == nil && len(svid.Certificates) > 0 {
			sum := sha256.Sum256(svid.Certificates[0].Raw)
			return Identity{ID: hex.EncodeToString(sum[:8]), SPIFFE: true}
		}
		i.logger.Warn("failed to fetch SVID, falling back to opaque local identity")
	}
	return Identity{ID: opaqueID(), SPIFFE: false}
}

// Close releases the SPIFFE workload API source, if one was opened.
func (i *Issuer) Close() error {
	if i.source == nil {
		return nil
	}
	return i.source.Close()
}

func opaqueID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("local-%d", time.Now().UnixNano())
	}
	return "local-" + hex.EncodeToString(b[:])
}
