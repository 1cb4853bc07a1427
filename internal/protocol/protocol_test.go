package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	line, err := Encode(CmdBuild, &BuildRequest{
		Manifest: "bootstrap.yaml",
		Root:     "/src/app",
		Output:   "dist",
		Resource: "app",
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		t.Fatal("encoded envelope is not newline-terminated")
	}

	env, payload, err := Decode(bytes.TrimSuffix(line, []byte("\n")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Command != CmdBuild {
		t.Fatalf("command = %q, want %q", env.Command, CmdBuild)
	}

	req, err := DecodePayload[BuildRequest](payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if req.Manifest != "bootstrap.yaml" || req.Root != "/src/app" {
		t.Fatalf("payload = %+v, want original request", req)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	line, err := Encode(CmdShutdown, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	env, payload, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Command != CmdShutdown {
		t.Fatalf("command = %q, want %q", env.Command, CmdShutdown)
	}
	if len(payload) != 0 {
		t.Fatalf("payload = %q, want empty", payload)
	}
}

func TestDecodeMissingCommand(t *testing.T) {
	if _, _, err := Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("expected error for envelope without command")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
}

func TestDecodePayloadEmpty(t *testing.T) {
	req, err := DecodePayload[BuildRequest](nil)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if req.Manifest != "" {
		t.Fatalf("zero value expected, got %+v", req)
	}
}
