package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RoundTrip(t *testing.T) {
	for i := 0; i < 5; i++ {
		key, err := solana.NewRandomPrivateKey()
		require.NoError(t, err)

		w, err := New(key.String())
		require.NoError(t, err)

		assert.Equal(t, key.PublicKey(), w.PublicKey)
		assert.Equal(t, key.PublicKey().String(), w.String())
		assert.Equal(t, key.PublicKey().String()[:7]+"...", w.Masked())
	}
}

func TestNew_Rejects(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	tampered := make([]byte, len(key))
	copy(tampered, key)
	tampered[40] ^= 0xFF

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrInvalidEncoding},
		{name: "not base58", input: "0OIl-not-base58", wantErr: ErrInvalidEncoding},
		{name: "public key only", input: key.PublicKey().String(), wantErr: ErrInvalidKeyLength},
		{name: "too long", input: base58.Encode(append([]byte(key), 1)), wantErr: ErrInvalidKeyLength},
		{name: "mismatched halves", input: base58.Encode(tampered), wantErr: ErrKeyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(tt.input)
			assert.Nil(t, w)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "abc", Mask("abc"))
	assert.Equal(t, "abcdefg", Mask("abcdefg"))
	assert.Equal(t, "abcdefg...", Mask("abcdefgh"))
}
