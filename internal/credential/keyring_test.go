package credential_test

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"

	"github.com/nhle/taskbot/internal/credential"
)

func arrayRing() credential.Ring {
	return keyring.NewArrayKeyring(nil)
}

func TestResolveTokenPrefersConfig(t *testing.T) {
	opened := false
	token, err := credential.ResolveToken("  123:abc ", func() (credential.Ring, error) {
		opened = true
		return arrayRing(), nil
	})
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if token != "123:abc" {
		t.Errorf("token = %q", token)
	}
	if opened {
		t.Error("keyring opened although the config had a token")
	}
}

func TestResolveTokenFallsBackToKeyring(t *testing.T) {
	ring := arrayRing()
	if err := credential.Set(ring, credential.TokenKey, "999:xyz"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	token, err := credential.ResolveToken("", func() (credential.Ring, error) { return ring, nil })
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if token != "999:xyz" {
		t.Errorf("token = %q", token)
	}
}

func TestResolveTokenMissing(t *testing.T) {
	_, err := credential.ResolveToken("", func() (credential.Ring, error) { return arrayRing(), nil })
	if !errors.Is(err, credential.ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

func TestDeleteMissingKeyIsNotAnError(t *testing.T) {
	ring := arrayRing()
	if err := credential.Delete(ring, credential.TokenKey); err != nil {
		t.Errorf("Delete: %v", err)
	}
}
