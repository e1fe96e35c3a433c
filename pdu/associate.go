package pdu

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/caio-sobreiro/dicommwl/errors"
	"github.com/caio-sobreiro/dicommwl/types"
)

// fixedFieldsLength covers protocol version, reserved, called/calling AE and 32 reserved bytes.
const fixedFieldsLength = 68

// PresentationContextRQ is a proposed presentation context.
type PresentationContextRQ struct {
	ID               byte
	AbstractSyntax   string
	TransferSyntaxes []string
}

// PresentationContextAC is the acceptor's answer to one proposed context.
type PresentationContextAC struct {
	ID             byte
	Result         byte
	TransferSyntax string
}

// AsyncOperationsWindow is the asynchronous operations window sub-item (0x53).
type AsyncOperationsWindow struct {
	MaxInvoked   uint16
	MaxPerformed uint16
}

// UserInformation carries the user information sub-items we read and write.
type UserInformation struct {
	MaxPDULength              uint32
	ImplementationClassUID    string
	ImplementationVersionName string
	AsyncOperations           *AsyncOperationsWindow
}

// AssociateRQ is a decoded A-ASSOCIATE-RQ.
type AssociateRQ struct {
	CalledAETitle        string
	CallingAETitle       string
	ApplicationContext   string
	PresentationContexts []PresentationContextRQ
	UserInfo             UserInformation
}

// AssociateAC is a decoded A-ASSOCIATE-AC.
type AssociateAC struct {
	CalledAETitle        string
	CallingAETitle       string
	ApplicationContext   string
	PresentationContexts []PresentationContextAC
	UserInfo             UserInformation
}

func normalizeUID(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00 ")
}

func parseAETitle(raw []byte) string {
	value := string(raw)
	if idx := strings.IndexByte(value, 0); idx != -1 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

func appendAETitle(buf []byte, aeTitle string) []byte {
	if len(aeTitle) > 16 {
		aeTitle = aeTitle[:16]
	}
	return append(buf, fmt.Sprintf("%-16s", aeTitle)...)
}

func appendItem(buf []byte, itemType byte, value []byte) []byte {
	buf = append(buf, itemType, 0x00)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(value)))
	return append(buf, value...)
}

type item struct {
	Type  byte
	Value []byte
}

// splitItems walks a run of items with a 1 byte type, 1 reserved byte and a 2 byte length.
func splitItems(pduType byte, data []byte) ([]item, error) {
	var items []item
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, errors.NewPDUError(pduType, fmt.Sprintf("truncated item header at offset %d", offset))
		}
		itemType := data[offset]
		end := offset + 4 + int(binary.BigEndian.Uint16(data[offset+2:offset+4]))
		if end > len(data) {
			return nil, errors.NewPDUError(pduType, fmt.Sprintf("item 0x%02x exceeds its parent", itemType))
		}
		items = append(items, item{Type: itemType, Value: data[offset+4 : end]})
		offset = end
	}
	return items, nil
}

func (u UserInformation) encode() []byte {
	var sub []byte
	maxLength := u.MaxPDULength
	if maxLength == 0 {
		maxLength = types.DefaultMaxPDULength
	}
	sub = appendItem(sub, types.ItemMaximumLength, binary.BigEndian.AppendUint32(nil, maxLength))

	classUID := u.ImplementationClassUID
	if classUID == "" {
		classUID = types.ImplementationClassUID
	}
	sub = appendItem(sub, types.ItemImplementationClassUID, []byte(classUID))

	if u.AsyncOperations != nil {
		var window []byte
		window = binary.BigEndian.AppendUint16(window, u.AsyncOperations.MaxInvoked)
		window = binary.BigEndian.AppendUint16(window, u.AsyncOperations.MaxPerformed)
		sub = appendItem(sub, types.ItemAsynchronousOperations, window)
	}

	versionName := u.ImplementationVersionName
	if versionName == "" {
		versionName = types.ImplementationVersionName
	}
	sub = appendItem(sub, types.ItemImplementationVersion, []byte(versionName))

	return appendItem(nil, types.ItemUserInformation, sub)
}

func parseUserInformation(pduType byte, data []byte) (UserInformation, error) {
	var info UserInformation
	items, err := splitItems(pduType, data)
	if err != nil {
		return info, fmt.Errorf("user information: %w", err)
	}
	for _, it := range items {
		switch it.Type {
		case types.ItemMaximumLength:
			if len(it.Value) == 4 {
				info.MaxPDULength = binary.BigEndian.Uint32(it.Value)
			}
		case types.ItemImplementationClassUID:
			info.ImplementationClassUID = normalizeUID(it.Value)
		case types.ItemImplementationVersion:
			info.ImplementationVersionName = strings.TrimSpace(string(it.Value))
		case types.ItemAsynchronousOperations:
			if len(it.Value) == 4 {
				info.AsyncOperations = &AsyncOperationsWindow{
					MaxInvoked:   binary.BigEndian.Uint16(it.Value[0:2]),
					MaxPerformed: binary.BigEndian.Uint16(it.Value[2:4]),
				}
			}
		}
	}
	return info, nil
}

func encodeFixedFields(calledAE, callingAE string) []byte {
	buf := make([]byte, 0, fixedFieldsLength)
	buf = append(buf, 0x00, 0x01, 0x00, 0x00) // protocol version, reserved
	buf = appendAETitle(buf, calledAE)
	buf = appendAETitle(buf, callingAE)
	return append(buf, make([]byte, 32)...)
}

// Encode returns the A-ASSOCIATE-RQ body (without the PDU header).
func (rq *AssociateRQ) Encode() []byte {
	buf := encodeFixedFields(rq.CalledAETitle, rq.CallingAETitle)

	appContext := rq.ApplicationContext
	if appContext == "" {
		appContext = types.ApplicationContextUID
	}
	buf = appendItem(buf, types.ItemApplicationContext, []byte(appContext))

	for _, pc := range rq.PresentationContexts {
		var sub []byte
		sub = append(sub, pc.ID, 0x00, 0x00, 0x00)
		sub = appendItem(sub, types.ItemAbstractSyntax, []byte(pc.AbstractSyntax))
		for _, ts := range pc.TransferSyntaxes {
			sub = appendItem(sub, types.ItemTransferSyntax, []byte(ts))
		}
		buf = appendItem(buf, types.ItemPresentationContextRQ, sub)
	}

	return append(buf, rq.UserInfo.encode()...)
}

// ParseAssociateRQ decodes an A-ASSOCIATE-RQ body.
func ParseAssociateRQ(data []byte) (*AssociateRQ, error) {
	if len(data) < fixedFieldsLength {
		return nil, errors.NewPDUError(TypeAssociateRQ, fmt.Sprintf("body too short: %d bytes", len(data)))
	}

	rq := &AssociateRQ{
		CalledAETitle:  parseAETitle(data[4:20]),
		CallingAETitle: parseAETitle(data[20:36]),
	}

	items, err := splitItems(TypeAssociateRQ, data[fixedFieldsLength:])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		switch it.Type {
		case types.ItemApplicationContext:
			rq.ApplicationContext = normalizeUID(it.Value)
		case types.ItemPresentationContextRQ:
			pc, err := parsePresentationContextRQ(it.Value)
			if err != nil {
				return nil, err
			}
			rq.PresentationContexts = append(rq.PresentationContexts, pc)
		case types.ItemUserInformation:
			if rq.UserInfo, err = parseUserInformation(TypeAssociateRQ, it.Value); err != nil {
				return nil, err
			}
		}
	}
	return rq, nil
}

func parsePresentationContextRQ(data []byte) (PresentationContextRQ, error) {
	var pc PresentationContextRQ
	if len(data) < 4 {
		return pc, errors.NewPDUError(TypeAssociateRQ, fmt.Sprintf("presentation context too short: %d", len(data)))
	}
	pc.ID = data[0]

	items, err := splitItems(TypeAssociateRQ, data[4:])
	if err != nil {
		return pc, fmt.Errorf("presentation context %d: %w", pc.ID, err)
	}
	for _, it := range items {
		switch it.Type {
		case types.ItemAbstractSyntax:
			pc.AbstractSyntax = normalizeUID(it.Value)
		case types.ItemTransferSyntax:
			pc.TransferSyntaxes = append(pc.TransferSyntaxes, normalizeUID(it.Value))
		}
	}
	return pc, nil
}

// Encode returns the A-ASSOCIATE-AC body (without the PDU header). Every context from
// the request is listed, rejected ones included.
func (ac *AssociateAC) Encode() []byte {
	buf := encodeFixedFields(ac.CalledAETitle, ac.CallingAETitle)

	appContext := ac.ApplicationContext
	if appContext == "" {
		appContext = types.ApplicationContextUID
	}
	buf = appendItem(buf, types.ItemApplicationContext, []byte(appContext))

	for _, pc := range ac.PresentationContexts {
		var sub []byte
		sub = append(sub, pc.ID, 0x00, pc.Result, 0x00)
		// Rejected contexts still carry a transfer syntax sub-item; some peers refuse an
		// AC whose rejected contexts have none.
		ts := pc.TransferSyntax
		if ts == "" {
			ts = types.ImplicitVRLittleEndian
		}
		sub = appendItem(sub, types.ItemTransferSyntax, []byte(ts))
		buf = appendItem(buf, types.ItemPresentationContextAC, sub)
	}

	return append(buf, ac.UserInfo.encode()...)
}

// ParseAssociateAC decodes an A-ASSOCIATE-AC body.
func ParseAssociateAC(data []byte) (*AssociateAC, error) {
	if len(data) < fixedFieldsLength {
		return nil, errors.NewPDUError(TypeAssociateAC, fmt.Sprintf("body too short: %d bytes", len(data)))
	}

	ac := &AssociateAC{
		CalledAETitle:  parseAETitle(data[4:20]),
		CallingAETitle: parseAETitle(data[20:36]),
	}

	items, err := splitItems(TypeAssociateAC, data[fixedFieldsLength:])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		switch it.Type {
		case types.ItemApplicationContext:
			ac.ApplicationContext = normalizeUID(it.Value)
		case types.ItemPresentationContextAC:
			if len(it.Value) < 4 {
				return nil, errors.NewPDUError(TypeAssociateAC, "presentation context result too short")
			}
			pc := PresentationContextAC{ID: it.Value[0], Result: it.Value[2]}
			subItems, err := splitItems(TypeAssociateAC, it.Value[4:])
			if err != nil {
				return nil, err
			}
			for _, sub := range subItems {
				if sub.Type == types.ItemTransferSyntax && pc.Result == types.PresentationAcceptance {
					pc.TransferSyntax = normalizeUID(sub.Value)
				}
			}
			ac.PresentationContexts = append(ac.PresentationContexts, pc)
		case types.ItemUserInformation:
			if ac.UserInfo, err = parseUserInformation(TypeAssociateAC, it.Value); err != nil {
				return nil, err
			}
		}
	}
	return ac, nil
}
