package identity

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewIssuerWithoutSocketFallsBackToLocal(t *testing.T) {
	issuer := NewIssuer("", discardLogger())
	require.NotNil(t, issuer)

	id := issuer.Issue()
	assert.False(t, id.SPIFFE)
	assert.Contains(t, id.ID, "local-")
}

func TestIssueProducesUniqueOpaqueIDs(t *testing.T) {
	issuer := NewIssuer("", discardLogger())

	a := issuer.Issue()
	b := issuer.Issue()

	assert.NotEqual(t, a.ID, b.ID)
}

func TestCloseWithoutSourceIsNoop(t *testing.T) {
	issuer := NewIssuer("", discardLogger())
	assert.NoError(t, issuer.Close())
}
