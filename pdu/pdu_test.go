package pdu

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"testing"

	"github.com/caio-sobreiro/dicommwl/errors"
)

func TestPDUTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant byte
		expected byte
	}{
		{"Associate-RQ", TypeAssociateRQ, 0x01},
		{"Associate-AC", TypeAssociateAC, 0x02},
		{"Associate-RJ", TypeAssociateRJ, 0x03},
		{"P-DATA-TF", TypePDataTF, 0x04},
		{"Release-RQ", TypeReleaseRQ, 0x05},
		{"Release-RP", TypeReleaseRP, 0x06},
		{"Abort", TypeAbort, 0x07},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("%s = 0x%02x, want 0x%02x", tt.name, tt.constant, tt.expected)
			}
		})
	}
}

func TestReadWritePDU(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDU(&buf, TypeReleaseRQ, []byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("WritePDU() error = %v", err)
	}

	want := []byte{0x05, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded = % x, want % x", buf.Bytes(), want)
	}

	pdu, err := ReadPDU(&buf)
	if err != nil {
		t.Fatalf("ReadPDU() error = %v", err)
	}
	if pdu.Type != TypeReleaseRQ || pdu.Length != 4 {
		t.Errorf("ReadPDU() = type 0x%02x length %d", pdu.Type, pdu.Length)
	}
}

func TestReadPDU_Truncated(t *testing.T) {
	data := []byte{0x04, 0x00, 0x00, 0x00, 0x00, 0x10, 0x01, 0x02}
	if _, err := ReadPDU(bytes.NewReader(data)); err == nil {
		t.Error("Expected error for truncated PDU body")
	}
}

func TestAbortRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAbort(&buf, errors.AbortSourceServiceProvider, errors.AbortReasonUnexpectedPDU); err != nil {
		t.Fatalf("WriteAbort() error = %v", err)
	}

	pdu, err := ReadPDU(&buf)
	if err != nil {
		t.Fatalf("ReadPDU() error = %v", err)
	}
	if pdu.Type != TypeAbort {
		t.Fatalf("Type = 0x%02x, want A-ABORT", pdu.Type)
	}

	abortErr := ParseAbort(pdu.Data)
	if abortErr.Source != errors.AbortSourceServiceProvider {
		t.Errorf("Source = %v", abortErr.Source)
	}
	if abortErr.Reason != errors.AbortReasonUnexpectedPDU {
		t.Errorf("Reason = %v", abortErr.Reason)
	}
}

func TestAssociateRJRoundTrip(t *testing.T) {
	rejection := errors.NewAssociationError(
		errors.RejectSourceServiceUser,
		errors.RejectReasonCalledAETitleNotRecognized,
		"wrong AE")

	var buf bytes.Buffer
	if err := WriteAssociateRJ(&buf, rejection); err != nil {
		t.Fatalf("WriteAssociateRJ() error = %v", err)
	}

	want := []byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x01, 0x01, 0x07}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded = % x, want % x", buf.Bytes(), want)
	}

	parsed, err := ParseAssociateRJ(buf.Bytes()[6:])
	if err != nil {
		t.Fatalf("ParseAssociateRJ() error = %v", err)
	}
	if parsed.Result != errors.RejectResultPermanent ||
		parsed.Source != errors.RejectSourceServiceUser ||
		parsed.Reason != errors.RejectReasonCalledAETitleNotRecognized {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestParsePDVs(t *testing.T) {
	var body []byte
	body = binary.BigEndian.AppendUint32(body, 4)
	body = append(body, 0x01, 0x03, 0xAA, 0xBB)
	body = binary.BigEndian.AppendUint32(body, 3)
	body = append(body, 0x01, 0x02, 0xCC)

	pdvs, err := ParsePDVs(body)
	if err != nil {
		t.Fatalf("ParsePDVs() error = %v", err)
	}
	if len(pdvs) != 2 {
		t.Fatalf("Expected 2 PDVs, got %d", len(pdvs))
	}
	if !pdvs[0].IsCommand() || !pdvs[0].IsLast() {
		t.Errorf("First PDV should be a last command fragment, header 0x%02x", pdvs[0].ControlHeader)
	}
	if pdvs[1].IsCommand() || !pdvs[1].IsLast() {
		t.Errorf("Second PDV should be a last dataset fragment, header 0x%02x", pdvs[1].ControlHeader)
	}
	if !bytes.Equal(pdvs[1].Data, []byte{0xCC}) {
		t.Errorf("Second PDV data = % x", pdvs[1].Data)
	}
}

func TestEncodePDVs(t *testing.T) {
	body := EncodePDVs(
		NewPDV(1, []byte{0xAA, 0xBB}, true, true),
		NewPDV(1, []byte{0xCC}, false, false),
		NewPDV(3, []byte{0xDD}, false, true),
	)

	pdvs, err := ParsePDVs(body)
	if err != nil {
		t.Fatalf("ParsePDVs() error = %v", err)
	}
	if len(pdvs) != 3 {
		t.Fatalf("Expected 3 PDVs, got %d", len(pdvs))
	}
	if pdvs[0].ControlHeader != 0x03 || pdvs[1].ControlHeader != 0x00 || pdvs[2].ControlHeader != 0x02 {
		t.Errorf("Control headers = 0x%02x 0x%02x 0x%02x", pdvs[0].ControlHeader, pdvs[1].ControlHeader, pdvs[2].ControlHeader)
	}
	if pdvs[2].ContextID != 3 || !bytes.Equal(pdvs[2].Data, []byte{0xDD}) {
		t.Errorf("Third PDV = %+v", pdvs[2])
	}
}

func TestParsePDVs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte{0x00, 0x00, 0x00}},
		{"length exceeds payload", []byte{0x00, 0x00, 0x00, 0x10, 0x01, 0x03}},
		{"length below header", []byte{0x00, 0x00, 0x00, 0x01, 0x01, 0x03}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePDVs(tt.data)
			if !stderrors.Is(err, errors.ErrInvalidPDU) {
				t.Errorf("Expected ErrInvalidPDU, got %v", err)
			}
		})
	}
}

func TestWritePData_Fragments(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 25)

	var buf bytes.Buffer
	// 16 byte PDUs leave 10 bytes per fragment.
	if err := WritePData(&buf, 3, 16, data, false); err != nil {
		t.Fatalf("WritePData() error = %v", err)
	}

	var reassembled []byte
	var headers []byte
	for buf.Len() > 0 {
		pdu, err := ReadPDU(&buf)
		if err != nil {
			t.Fatalf("ReadPDU() error = %v", err)
		}
		if pdu.Length > 16 {
			t.Errorf("PDU length %d exceeds max 16", pdu.Length)
		}
		pdvs, err := ParsePDVs(pdu.Data)
		if err != nil {
			t.Fatalf("ParsePDVs() error = %v", err)
		}
		for _, pdv := range pdvs {
			if pdv.ContextID != 3 {
				t.Errorf("ContextID = %d, want 3", pdv.ContextID)
			}
			headers = append(headers, pdv.ControlHeader)
			reassembled = append(reassembled, pdv.Data...)
		}
	}

	if !bytes.Equal(headers, []byte{0x00, 0x00, 0x02}) {
		t.Errorf("control headers = % x, want 00 00 02", headers)
	}
	if !bytes.Equal(reassembled, data) {
		t.Error("reassembled data does not match")
	}
}

func TestWritePData_CommandSingleFragment(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePData(&buf, 1, 0, []byte{0x01, 0x02}, true); err != nil {
		t.Fatalf("WritePData() error = %v", err)
	}

	want := []byte{0x04, 0x00, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x04, 0x01, 0x03, 0x01, 0x02}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded = % x, want % x", buf.Bytes(), want)
	}
}

func TestTypeName(t *testing.T) {
	if got := TypeName(TypePDataTF); got != "P-DATA-TF" {
		t.Errorf("TypeName(P-DATA-TF) = %s", got)
	}
	if got := TypeName(0x42); got != "UNKNOWN(0x42)" {
		t.Errorf("TypeName(0x42) = %s", got)
	}
}
