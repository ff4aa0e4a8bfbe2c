package ipc

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func TestSequentialFrames(t *testing.T) {
	var buf bytes.Buffer

	frames := []struct {
		tag     byte
		payload []byte
	}{
		{TagStdoutData, []byte("line 1\n")},
		{TagStderrData, []byte("warning\n")},
		{TagStdoutData, []byte{}},
		{TagExit, []byte(`{"code":0}`)},
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f.tag, f.payload); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for i, want := range frames {
		tag, payload, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("frame %d: ReadFrame: %v", i, err)
		}
		if tag != want.tag {
			t.Errorf("frame %d: tag = 0x%02x, want 0x%02x", i, tag, want.tag)
		}
		if !bytes.Equal(payload, want.payload) {
			t.Errorf("frame %d: payload = %q, want %q", i, payload, want.payload)
		}
	}

	if _, _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestRequestFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, TagRequest, Request{Line: "grep x < in | sort"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := buf.String()[5:]; got != `{"line":"grep x < in | sort"}` {
		t.Errorf("payload = %s", got)
	}

	tag, payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var req Request
	if err := DecodeJSON(tag, payload, &req); err != nil {
		t.Fatal(err)
	}
	if req.Line != "grep x < in | sort" {
		t.Errorf("line = %q", req.Line)
	}
}

func TestDecodeJSONNamesTag(t *testing.T) {
	var res ExitResult
	err := DecodeJSON(TagExit, []byte("{"), &res)
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("0x12")) {
		t.Errorf("expected error naming tag 0x12, got %v", err)
	}
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	_, _, err := ReadFrame(bytes.NewReader([]byte{TagRequest, 0x00, 0x00}))
	if err == nil {
		t.Error("expected error for truncated header")
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{TagStdoutData, 0x00, 0x00, 0x00, 0x0a})
	buf.WriteString("abc")

	if _, _, err := ReadFrame(&buf); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var header [5]byte
	header[0] = TagStdoutData
	binary.BigEndian.PutUint32(header[1:], MaxPayload+1)

	if _, _, err := ReadFrame(bytes.NewReader(header[:])); err == nil {
		t.Error("expected error for oversize frame")
	}
	if err := WriteFrame(io.Discard, TagStdoutData, make([]byte, MaxPayload+1)); err == nil {
		t.Error("expected error writing oversize frame")
	}
}
