package types

import "testing"

func TestDIMSECommandConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant uint16
		expected uint16
	}{
		{"C-FIND-RQ", CFindRQ, 0x0020},
		{"C-FIND-RSP", CFindRSP, 0x8020},
		{"C-ECHO-RQ", CEchoRQ, 0x0030},
		{"C-ECHO-RSP", CEchoRSP, 0x8030},
		{"C-CANCEL-RQ", CCancelRQ, 0x0FFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("%s = 0x%04x, want 0x%04x", tt.name, tt.constant, tt.expected)
			}
			if got := CommandName(tt.constant); got != tt.name {
				t.Errorf("CommandName(0x%04x) = %s, want %s", tt.constant, got, tt.name)
			}
		})
	}
}

func TestResponseCommandFor(t *testing.T) {
	tests := []struct {
		request  uint16
		response uint16
	}{
		{CFindRQ, CFindRSP},
		{CEchoRQ, CEchoRSP},
		{0x0001, 0x8001},
	}

	for _, tt := range tests {
		if got := ResponseCommandFor(tt.request); got != tt.response {
			t.Errorf("ResponseCommandFor(0x%04x) = 0x%04x, want 0x%04x", tt.request, got, tt.response)
		}
	}
}

func TestMessage_StatusHelpers(t *testing.T) {
	tests := []struct {
		name        string
		msg         Message
		wantPending bool
		wantDataSet bool
	}{
		{
			name:        "pending match",
			msg:         Message{CommandField: CFindRSP, Status: StatusPending, CommandDataSetType: DataSetPresent},
			wantPending: true,
			wantDataSet: true,
		},
		{
			name:        "pending with optional keys unsupported",
			msg:         Message{CommandField: CFindRSP, Status: 0xFF01, CommandDataSetType: DataSetPresent},
			wantPending: true,
			wantDataSet: true,
		},
		{
			name: "final success",
			msg:  Message{CommandField: CFindRSP, Status: StatusSuccess, CommandDataSetType: NoDataSet},
		},
		{
			name: "echo response",
			msg:  Message{CommandField: CEchoRSP, CommandDataSetType: NoDataSet},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsPending(); got != tt.wantPending {
				t.Errorf("IsPending() = %v, want %v", got, tt.wantPending)
			}
			if got := tt.msg.HasDataSet(); got != tt.wantDataSet {
				t.Errorf("HasDataSet() = %v, want %v", got, tt.wantDataSet)
			}
		})
	}
}
