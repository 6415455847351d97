package nip05

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapcooking/backend/internal/kv/memory"
)

const (
	alicePubkey = "82341f882b6eabcd2ba7f1ef90aad961cf074af15b9ef44a09f9d2a8fbfbe6a2"
	bobPubkey   = "32e1827635450ebb3c5a7d12c1f8e7b2b514439ac10a67eef3d9fd9c5c68e245"
	rootPubkey  = "d307643547703537dfdef811c3dea96f1f9e84c8249e200353425924a9908cf8"
)

func TestService_Claim(t *testing.T) {
	tests := []struct {
		name      string
		claimName string
		pubkey    string
		wantErr   error
	}{
		{name: "valid claim", claimName: "alice", pubkey: alicePubkey},
		{name: "uppercase is normalized", claimName: "Alice", pubkey: alicePubkey},
		{name: "underscores and digits", claimName: "chef_42", pubkey: alicePubkey},
		{name: "too short", claimName: "al", pubkey: alicePubkey, wantErr: ErrInvalidName},
		{name: "too long", claimName: strings.Repeat("a", 21), pubkey: alicePubkey, wantErr: ErrInvalidName},
		{name: "bad characters", claimName: "al!ce", pubkey: alicePubkey, wantErr: ErrInvalidName},
		{name: "reserved name", claimName: "admin", pubkey: alicePubkey, wantErr: ErrNameReserved},
		{name: "reserved root", claimName: "_", pubkey: alicePubkey, wantErr: ErrInvalidName},
		{name: "short pubkey", claimName: "alice", pubkey: "abcd", wantErr: ErrInvalidPubkey},
		{name: "non-hex pubkey", claimName: "alice", pubkey: strings.Repeat("z", 64), wantErr: ErrInvalidPubkey},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(memory.NewMemoryStorage(), rootPubkey)
			err := svc.Claim(context.Background(), tt.claimName, tt.pubkey)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_Claim_Conflict(t *testing.T) {
	svc := NewService(memory.NewMemoryStorage(), rootPubkey)
	ctx := context.Background()

	require.NoError(t, svc.Claim(ctx, "alice", alicePubkey))

	// same owner re-claiming is fine
	assert.NoError(t, svc.Claim(ctx, "alice", alicePubkey))

	// a different pubkey is a conflict
	assert.ErrorIs(t, svc.Claim(ctx, "alice", bobPubkey), ErrNameTaken)
}

func TestService_NostrJSON(t *testing.T) {
	svc := NewService(memory.NewMemoryStorage(), rootPubkey)
	ctx := context.Background()

	require.NoError(t, svc.Claim(ctx, "alice", alicePubkey))
	require.NoError(t, svc.Claim(ctx, "bob", bobPubkey))

	doc, err := svc.NostrJSON(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, rootPubkey, doc.Names["_"])
	assert.Equal(t, alicePubkey, doc.Names["alice"])
	assert.Equal(t, bobPubkey, doc.Names["bob"])
	assert.NotEmpty(t, doc.Relays[alicePubkey])

	doc, err = svc.NostrJSON(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": alicePubkey}, doc.Names)

	doc, err = svc.NostrJSON(ctx, "_")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"_": rootPubkey}, doc.Names)

	_, err = svc.NostrJSON(ctx, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}
