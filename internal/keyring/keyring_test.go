package keyring

import (
	"testing"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/surgisync/internal/constants"
)

const testBase = "https://care.example.org"

func TestSetAndGetToken(t *testing.T) {
	gokeyring.MockInit()
	t.Setenv(constants.TokenEnvVar, "")

	if err := SetToken(testBase, "tok-123"); err != nil {
		t.Fatalf("SetToken() failed: %v", err)
	}

	got, err := GetToken(testBase + "/")
	if err != nil {
		t.Fatalf("GetToken() failed: %v", err)
	}
	if got != "tok-123" {
		t.Errorf("GetToken() = %q, want %q", got, "tok-123")
	}
}

func TestTokensAreScopedByBaseURL(t *testing.T) {
	gokeyring.MockInit()
	t.Setenv(constants.TokenEnvVar, "")

	if err := SetToken(testBase, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetToken("http://localhost:8000"); err != ErrNotFound {
		t.Errorf("GetToken() for other base error = %v, want %v", err, ErrNotFound)
	}
}

func TestSetTokenEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetToken(testBase, "  "); err == nil {
		t.Error("SetToken with blank token should return an error")
	}
}

func TestEnvOverride(t *testing.T) {
	gokeyring.MockInit()
	t.Setenv(constants.TokenEnvVar, "from-env")

	got, err := GetToken(testBase)
	if err != nil {
		t.Fatalf("GetToken() failed: %v", err)
	}
	if got != "from-env" {
		t.Errorf("GetToken() = %q, want from-env", got)
	}
}

func TestDeleteToken(t *testing.T) {
	gokeyring.MockInit()
	t.Setenv(constants.TokenEnvVar, "")

	if err := SetToken(testBase, "tok"); err != nil {
		t.Fatal(err)
	}
	if err := DeleteToken(testBase); err != nil {
		t.Fatalf("DeleteToken() failed: %v", err)
	}
	if _, err := GetToken(testBase); err != ErrNotFound {
		t.Errorf("GetToken() after delete error = %v, want %v", err, ErrNotFound)
	}
	if err := DeleteToken(testBase); err != ErrNotFound {
		t.Errorf("second DeleteToken() error = %v, want %v", err, ErrNotFound)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()
	if !IsAvailable() {
		t.Error("IsAvailable() = false with mock keyring")
	}
}
