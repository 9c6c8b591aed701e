package api

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitTLS_NoEnvVars(t *testing.T) {
	clearTLSEnv(t)
	SetTLSConfigForTest(nil)

	InitTLS()

	if IsTLSEnabled() {
		t.Error("TLS should not be enabled when env vars are not set")
	}
}

func TestInitTLS_OnlyCert(t *testing.T) {
	clearTLSEnv(t)
	t.Setenv("SENTIENT_TLS_CERT", "/path/to/cert.pem")

	SetTLSConfigForTest(nil)
	InitTLS()

	if IsTLSEnabled() {
		t.Error("TLS should not be enabled when only cert is set")
	}
}

func TestInitTLS_OnlyKey(t *testing.T) {
	clearTLSEnv(t)
	t.Setenv("SENTIENT_TLS_KEY", "/path/to/key.pem")

	SetTLSConfigForTest(nil)
	InitTLS()

	if IsTLSEnabled() {
		t.Error("TLS should not be enabled when only key is set")
	}
}

func TestInitTLS_BothSet(t *testing.T) {
	clearTLSEnv(t)
	t.Setenv("SENTIENT_TLS_CERT", "/path/to/cert.pem")
	t.Setenv("SENTIENT_TLS_KEY", "/path/to/key.pem")

	SetTLSConfigForTest(nil)
	InitTLS()
	defer SetTLSConfigForTest(nil)

	if !IsTLSEnabled() {
		t.Fatal("TLS should be enabled when both cert and key are set")
	}
	if tlsConfig.CertFile != "/path/to/cert.pem" {
		t.Errorf("CertFile = %q, want %q", tlsConfig.CertFile, "/path/to/cert.pem")
	}
	if tlsConfig.KeyFile != "/path/to/key.pem" {
		t.Errorf("KeyFile = %q, want %q", tlsConfig.KeyFile, "/path/to/key.pem")
	}
}

func TestInitTLS_PathsFromFiles(t *testing.T) {
	clearTLSEnv(t)
	dir := t.TempDir()
	certRef := filepath.Join(dir, "cert_path")
	keyRef := filepath.Join(dir, "key_path")
	if err := os.WriteFile(certRef, []byte("/etc/sim/cert.pem\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyRef, []byte("/etc/sim/key.pem\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTIENT_TLS_CERT_FILE", certRef)
	t.Setenv("SENTIENT_TLS_KEY_FILE", keyRef)

	SetTLSConfigForTest(nil)
	InitTLS()
	defer SetTLSConfigForTest(nil)

	if !IsTLSEnabled() {
		t.Fatal("TLS should be enabled from *_FILE variables")
	}
	if tlsConfig.CertFile != "/etc/sim/cert.pem" {
		t.Errorf("CertFile = %q, want /etc/sim/cert.pem", tlsConfig.CertFile)
	}
}

func TestLoadTLSConfig_NotEnabled(t *testing.T) {
	SetTLSConfigForTest(nil)

	cfg := LoadTLSConfig()
	if cfg != nil {
		t.Error("LoadTLSConfig should return nil when TLS is not enabled")
	}
}

func TestLoadTLSConfig_InvalidFiles(t *testing.T) {
	SetTLSConfigForTest(&TLSConfig{
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	})
	defer SetTLSConfigForTest(nil)

	cfg := LoadTLSConfig()
	if cfg != nil {
		t.Error("LoadTLSConfig should return nil when cert files don't exist")
	}
}
