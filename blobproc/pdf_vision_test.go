package blobproc

import (
	"context"
	"testing"

	"github.com/ragdata-go/ragdata/llm"
)

// fakeVisionProvider is a hand-rolled llm.VisionProvider test double;
// only ChatWithImages is exercised by the PDF vision escalation path.
type fakeVisionProvider struct{}

func (fakeVisionProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "unused"}, nil
}

func (fakeVisionProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (fakeVisionProvider) ChatWithImages(ctx context.Context, req llm.VisionChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "extracted via vision"}, nil
}

func TestNewPDFParserWithoutVisionIsPlainAdapter(t *testing.T) {
	p := NewPDFParser(nil)
	if _, ok := p.(*visionEscalatingPDFParser); ok {
		t.Fatal("NewPDFParser(nil) should not escalate to vision")
	}
	caps := p.Capabilities()
	for _, c := range caps {
		if c == "vision_extraction" {
			t.Error("plain PDF parser should not advertise vision_extraction")
		}
	}
}

func TestNewPDFParserWithVisionAddsCapability(t *testing.T) {
	p := NewPDFParser(fakeVisionProvider{})
	if _, ok := p.(*visionEscalatingPDFParser); !ok {
		t.Fatal("NewPDFParser(vision) should return a visionEscalatingPDFParser")
	}
	found := false
	for _, c := range p.Capabilities() {
		if c == "vision_extraction" {
			found = true
		}
	}
	if !found {
		t.Error("vision-escalating PDF parser should advertise vision_extraction")
	}
	if p.Name() != "pdf" || !p.CanParse("report.pdf") {
		t.Errorf("vision-escalating parser should still behave like the pdf parser for name/routing")
	}
}

func TestPDFVisionEscalationFallsBackOnUndetectableComplexity(t *testing.T) {
	p := NewPDFParser(fakeVisionProvider{})
	// Not a real PDF: DetectComplexity fails to open it, so the adapter
	// must fall through to the plain path rather than panic or hang.
	_, _, err := p.ParseBlob(context.Background(), []byte("not a pdf"), "doc.pdf", nil)
	if err == nil {
		t.Fatal("expected plain PDF parsing of garbage bytes to fail")
	}
}
