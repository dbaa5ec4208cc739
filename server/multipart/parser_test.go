package multipart

import (
	"bytes"
	mimemultipart "mime/multipart"
	"testing"

	"go.uber.org/zap/zaptest"
)

const testBoundary = "----testboundary1234"

func buildBody(t *testing.T, segments ...string) []byte {
	t.Helper()

	var b bytes.Buffer
	for _, segment := range segments {
		b.WriteString("--" + testBoundary + "\r\n")
		b.WriteString(segment)
	}
	b.WriteString("--" + testBoundary + "--\r\n")
	return b.Bytes()
}

func TestExtractBoundary(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
		wantErr     bool
	}{
		{"plain", "multipart/form-data; boundary=abc123", "abc123", false},
		{"quoted", `multipart/form-data; boundary="abc 123"`, "abc 123", false},
		{"extra params", "multipart/form-data; charset=utf-8; boundary=xyz", "xyz", false},
		{"missing boundary", "multipart/form-data", "", true},
		{"empty boundary", "multipart/form-data; boundary=", "", true},
		{"wrong type", "application/json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBoundary(tt.contentType)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got boundary %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractBoundary failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected boundary %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParser_Parse_FileAndFields(t *testing.T) {
	parser := NewParser(zaptest.NewLogger(t))

	body := buildBody(t,
		"Content-Disposition: form-data; name=\"ocr_lang\"\r\n\r\ndeu\r\n",
		"Content-Disposition: form-data; name=\"pdf_file\"; filename=\"scan.pdf\"\r\nContent-Type: application/pdf\r\n\r\n%PDF-1.4 content\r\n",
		"Content-Disposition: form-data; name=\"dpi\"\r\n\r\n600\r\n",
	)

	parts, err := parser.Parse(body, testBoundary)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(parts) != 3 {
		t.Fatalf("Expected 3 parts, got %d", len(parts))
	}

	form := NewForm(parts)

	file, err := form.File()
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if file.Name != "pdf_file" || file.Filename != "scan.pdf" {
		t.Errorf("Unexpected file part: name=%q filename=%q", file.Name, file.Filename)
	}
	if string(file.Content) != "%PDF-1.4 content" {
		t.Errorf("Unexpected file content: %q", file.Content)
	}

	if got := form.Value("ocr_lang", "eng"); got != "deu" {
		t.Errorf("Expected ocr_lang deu, got %q", got)
	}
	if got := form.Value("dpi", "300"); got != "600" {
		t.Errorf("Expected dpi 600, got %q", got)
	}
	if got := form.Value("missing", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback for missing field, got %q", got)
	}
}

func TestParser_Parse_ByteExactFileContent(t *testing.T) {
	parser := NewParser(zaptest.NewLogger(t))

	// Binary content including CRLF pairs and nulls must round-trip
	// byte for byte.
	payload := []byte("%PDF-1.7\r\nbinary\x00\x01\x02\r\nmore\nlines\r\n\r\nend")

	var body bytes.Buffer
	writer := mimemultipart.NewWriter(&body)
	part, err := writer.CreateFormFile("pdf_file", "doc.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := writer.WriteField("ocr_lang", "fra"); err != nil {
		t.Fatalf("WriteField failed: %v", err)
	}
	writer.Close()

	parts, err := parser.Parse(body.Bytes(), writer.Boundary())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	form := NewForm(parts)
	file, err := form.File()
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if !bytes.Equal(file.Content, payload) {
		t.Errorf("File content mismatch:\n got %q\nwant %q", file.Content, payload)
	}
	if got := form.Value("ocr_lang", "eng"); got != "fra" {
		t.Errorf("Expected ocr_lang fra, got %q", got)
	}
}

func TestParser_Parse_PartOrderIndependent(t *testing.T) {
	parser := NewParser(zaptest.NewLogger(t))

	fileSegment := "Content-Disposition: form-data; name=\"pdf_file\"; filename=\"a.pdf\"\r\n\r\nfilebytes\r\n"
	fieldSegment := "Content-Disposition: form-data; name=\"dpi\"\r\n\r\n150\r\n"

	for name, body := range map[string][]byte{
		"file first":  buildBody(t, fileSegment, fieldSegment),
		"field first": buildBody(t, fieldSegment, fileSegment),
	} {
		parts, err := parser.Parse(body, testBoundary)
		if err != nil {
			t.Fatalf("%s: Parse failed: %v", name, err)
		}
		form := NewForm(parts)

		file, err := form.File()
		if err != nil {
			t.Fatalf("%s: File failed: %v", name, err)
		}
		if string(file.Content) != "filebytes" {
			t.Errorf("%s: unexpected file content %q", name, file.Content)
		}
		if got := form.Value("dpi", ""); got != "150" {
			t.Errorf("%s: expected dpi 150, got %q", name, got)
		}
	}
}

func TestParser_Parse_ClosingDelimiterDiscarded(t *testing.T) {
	parser := NewParser(zaptest.NewLogger(t))

	body := buildBody(t,
		"Content-Disposition: form-data; name=\"pdf_file\"; filename=\"a.pdf\"\r\n\r\nx\r\n",
	)

	parts, err := parser.Parse(body, testBoundary)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("Expected 1 part, closing delimiter should be discarded; got %d", len(parts))
	}
}

func TestParser_Parse_MalformedPartSkipped(t *testing.T) {
	parser := NewParser(zaptest.NewLogger(t))

	body := buildBody(t,
		"no headers here, just junk without separator",
		"X-Other-Header: value\r\n\r\nno disposition\r\n",
		"Content-Disposition: form-data; name=\"pdf_file\"; filename=\"ok.pdf\"\r\n\r\ngood\r\n",
	)

	parts, err := parser.Parse(body, testBoundary)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("Expected malformed parts to be skipped, got %d parts", len(parts))
	}
	if parts[0].Filename != "ok.pdf" {
		t.Errorf("Expected surviving part ok.pdf, got %q", parts[0].Filename)
	}
}

func TestParser_Parse_DuplicateFilePartsFirstWins(t *testing.T) {
	parser := NewParser(zaptest.NewLogger(t))

	body := buildBody(t,
		"Content-Disposition: form-data; name=\"pdf_file\"; filename=\"first.pdf\"\r\n\r\nfirst\r\n",
		"Content-Disposition: form-data; name=\"pdf_file\"; filename=\"second.pdf\"\r\n\r\nsecond\r\n",
	)

	parts, err := parser.Parse(body, testBoundary)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	file, err := NewForm(parts).File()
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if file.Filename != "first.pdf" || string(file.Content) != "first" {
		t.Errorf("Expected first file part to win, got %q (%q)", file.Filename, file.Content)
	}
}

func TestParser_Parse_EmptyBoundary(t *testing.T) {
	parser := NewParser(zaptest.NewLogger(t))

	if _, err := parser.Parse([]byte("anything"), ""); err == nil {
		t.Fatal("Expected error for empty boundary")
	}
}

func TestForm_File_NoFilePart(t *testing.T) {
	parser := NewParser(zaptest.NewLogger(t))

	body := buildBody(t,
		"Content-Disposition: form-data; name=\"ocr_lang\"\r\n\r\neng\r\n",
	)

	parts, err := parser.Parse(body, testBoundary)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, err := NewForm(parts).File(); err != ErrNoFilePart {
		t.Errorf("Expected ErrNoFilePart, got %v", err)
	}
}
