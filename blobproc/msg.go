package blobproc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
)

// MSGParser reads Outlook .msg files, a Compound File Binary (CFB)
// container holding MAPI property streams, via mscfb for the container
// walk and msoleps for the embedded SummaryInformation property set
// (used here only to recover a fallback subject when the MAPI subject
// stream is absent).
type MSGParser struct{}

func (MSGParser) Name() string                  { return "msg" }
func (MSGParser) SupportedExtensions() []string { return []string{"msg"} }
func (MSGParser) MimeTypes() []string {
	return []string{"application/vnd.ms-outlook", "application/octet-stream"}
}
func (MSGParser) Capabilities() []string {
	return []string{"text_extraction", "header_extraction", "body_extraction"}
}

func (MSGParser) CanParse(filename string) bool {
	return extensionOf(filename) == "msg"
}

// MAPI property tags for the streams this parser reads. Suffix 001F is
// the unicode (UTF-16LE) variant, 001E the ANSI variant; msg writers
// emit one or the other depending on the message's code page.
const (
	tagBodyUnicode    = "__substg1.0_1000001F"
	tagBodyANSI       = "__substg1.0_1000001E"
	tagSubjectUnicode = "__substg1.0_0037001F"
	tagSubjectANSI    = "__substg1.0_0037001E"
	tagSenderUnicode  = "__substg1.0_0C1A001F"
	tagSenderANSI     = "__substg1.0_0C1A001E"
)

func (p MSGParser) ParseBlob(_ context.Context, data []byte, filename string, _ map[string]any) ([]Fragment, map[string]any, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("opening MSG container: %w", err)
	}

	var subject, sender, body string
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		name := entry.Name
		switch {
		case name == tagBodyUnicode:
			body = readUTF16Stream(entry)
		case name == tagBodyANSI && body == "":
			body = readASCIIStream(entry)
		case name == tagSubjectUnicode:
			subject = readUTF16Stream(entry)
		case name == tagSubjectANSI && subject == "":
			subject = readASCIIStream(entry)
		case name == tagSenderUnicode:
			sender = readUTF16Stream(entry)
		case name == tagSenderANSI && sender == "":
			sender = readASCIIStream(entry)
		}
	}

	if subject == "" {
		subject = summaryInfoTitle(data)
	}

	if body == "" && subject == "" {
		return nil, nil, fmt.Errorf("no MAPI body or subject stream found in %s", filename)
	}

	var text strings.Builder
	if subject != "" {
		text.WriteString("Subject: " + subject + "\n")
	}
	if sender != "" {
		text.WriteString("From: " + sender + "\n")
	}
	if body != "" {
		text.WriteString("\n" + body)
	}

	meta := map[string]any{"type": "email"}
	if subject != "" {
		meta["subject"] = subject
	}
	if sender != "" {
		meta["sender"] = sender
	}

	return []Fragment{{SectionLabel: subject, Text: text.String(), Metadata: meta}},
		map[string]any{"parse_method": "native"}, nil
}

func readUTF16Stream(r io.Reader) string {
	raw, err := io.ReadAll(r)
	if err != nil || len(raw) < 2 {
		return ""
	}
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, uint16(raw[i])|uint16(raw[i+1])<<8)
	}
	return strings.TrimRight(string(utf16.Decode(units)), "\x00")
}

func readASCIIStream(r io.Reader) string {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(raw), "\x00")
}

// summaryInfoTitle falls back to the CFB SummaryInformation property
// set's Title field when no MAPI subject stream is present.
func summaryInfoTitle(data []byte) string {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != "\x05SummaryInformation" {
			continue
		}
		raw, err := io.ReadAll(entry)
		if err != nil {
			return ""
		}
		props, err := msoleps.New(bytes.NewReader(raw))
		if err != nil {
			return ""
		}
		for _, p := range props.Property {
			if strings.EqualFold(p.Name, "Title") {
				return fmt.Sprintf("%v", p.T)
			}
		}
	}
	return ""
}
