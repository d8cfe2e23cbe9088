package wire

import (
	"errors"
	"fmt"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/command"
	"github.com/linsmod/webf/internal/host"
	"github.com/linsmod/webf/internal/native"
)

type HandleDTO struct {
	ID   uint64 `json:"id"`
	Kind string `json:"kind"`
}

func HandleToDTO(h binding.Handle) HandleDTO {
	return HandleDTO{ID: h.ID, Kind: h.Kind.String()}
}

func HandleFromDTO(dto HandleDTO) (binding.Handle, error) {
	kind, err := binding.ParseKind(dto.Kind)
	if err != nil {
		return binding.Handle{}, err
	}
	if dto.ID == 0 {
		return binding.Handle{}, fmt.Errorf("handle id must be non-zero")
	}
	return binding.Handle{ID: dto.ID, Kind: kind}, nil
}

// RecordDTO is a command record on the wire. Payloads stay UTF-16 code
// units so unpaired surrogates survive the trip.
type RecordDTO struct {
	Seq    uint64     `json:"seq"`
	Op     string     `json:"op"`
	Target HandleDTO  `json:"target"`
	Aux    *HandleDTO `json:"aux,omitempty"`
	Args   [][]uint16 `json:"args,omitempty"`
}

func RecordsToDTO(records []command.Record) []RecordDTO {
	out := make([]RecordDTO, len(records))
	for i, r := range records {
		dto := RecordDTO{Seq: r.Seq, Op: r.Op.String(), Target: HandleToDTO(r.TargetHandle())}
		if aux := r.AuxHandle(); !aux.IsZero() {
			a := HandleToDTO(aux)
			dto.Aux = &a
		}
		for j := 0; j < int(r.Argc); j++ {
			dto.Args = append(dto.Args, []uint16(r.Args[j].Clone()))
		}
		out[i] = dto
	}
	return out
}

// RecordsFromDTO rebuilds records holding weak references: the receiving
// side never owns the scripting-side objects.
func RecordsFromDTO(dtos []RecordDTO) ([]command.Record, error) {
	out := make([]command.Record, len(dtos))
	for i, dto := range dtos {
		op, err := command.ParseOpcode(dto.Op)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", dto.Seq, err)
		}
		target, err := HandleFromDTO(dto.Target)
		if err != nil {
			return nil, fmt.Errorf("record %d target: %w", dto.Seq, err)
		}
		if len(dto.Args) > len(command.Record{}.Args) {
			return nil, fmt.Errorf("record %d: %d payloads", dto.Seq, len(dto.Args))
		}
		r := command.Record{Seq: dto.Seq, Op: op, Target: binding.Weak(target), Argc: uint8(len(dto.Args))}
		for j, arg := range dto.Args {
			r.Args[j] = command.String(arg)
		}
		if dto.Aux != nil {
			aux, err := HandleFromDTO(*dto.Aux)
			if err != nil {
				return nil, fmt.Errorf("record %d aux: %w", dto.Seq, err)
			}
			r.Aux = binding.Weak(aux)
		}
		out[i] = r
	}
	return out, nil
}

type ValueDTO struct {
	Kind     string      `json:"kind"`
	Bool     bool        `json:"bool,omitempty"`
	Number   float64     `json:"number,omitempty"`
	String   string      `json:"string,omitempty"`
	Pointers []HandleDTO `json:"pointers,omitempty"`
}

func ValueToDTO(v native.Value) ValueDTO {
	dto := ValueDTO{Kind: v.Kind().String()}
	switch v.Kind() {
	case native.KindBool:
		dto.Bool, _ = v.AsBool()
	case native.KindNumber:
		dto.Number, _ = v.AsNumber()
	case native.KindString:
		dto.String, _ = v.AsString()
	case native.KindPointer, native.KindPointerList:
		for _, h := range v.Handles() {
			dto.Pointers = append(dto.Pointers, HandleToDTO(h))
		}
	}
	return dto
}

func ValueFromDTO(dto ValueDTO) (native.Value, error) {
	kind, err := native.ParseKind(dto.Kind)
	if err != nil {
		return native.Null(), err
	}
	handles := make([]binding.Handle, len(dto.Pointers))
	for i, p := range dto.Pointers {
		if handles[i], err = HandleFromDTO(p); err != nil {
			return native.Null(), err
		}
	}
	switch kind {
	case native.KindBool:
		return native.Bool(dto.Bool), nil
	case native.KindNumber:
		return native.Number(dto.Number), nil
	case native.KindString:
		return native.String(dto.String), nil
	case native.KindPointer:
		if len(handles) != 1 {
			return native.Null(), fmt.Errorf("pointer value carries %d handles", len(handles))
		}
		return native.Pointer(handles[0]), nil
	case native.KindPointerList:
		return native.Pointers(handles), nil
	}
	return native.Null(), nil
}

type FlushRequest struct {
	Records []RecordDTO `json:"records"`
}

type CallRequest struct {
	Target HandleDTO  `json:"target"`
	Method string     `json:"method"`
	Args   []ValueDTO `json:"args,omitempty"`
}

type CallResponse struct {
	Value ValueDTO `json:"value"`
}

type SnapshotRequest struct {
	Target HandleDTO           `json:"target"`
	Params host.SnapshotParams `json:"params"`
}

// SnapshotResponse carries either the rendered bytes or the host's message.
type SnapshotResponse struct {
	Data  []byte `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error codes.
const (
	CodeProtocol   = "protocol"
	CodeInvocation = "invocation"
	CodeAsync      = "async"
	CodeTransport  = "transport"
	CodeClosed     = "closed"
	CodeInternal   = "internal"
)

type ErrorDTO struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Seq     uint64     `json:"seq,omitempty"`
	Handle  *HandleDTO `json:"handle,omitempty"`
	Op      string     `json:"op,omitempty"`
	Method  string     `json:"method,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

// ErrorToDTO classifies err for the wire.
func ErrorToDTO(err error) ErrorDTO {
	var (
		perr *host.ProtocolError
		ierr *host.InvocationError
		aerr *host.AsyncHostError
		terr *host.TransportError
	)
	switch {
	case errors.As(err, &perr):
		dto := ErrorDTO{Code: CodeProtocol, Message: perr.Error(), Seq: perr.Seq, Op: perr.Op, Reason: perr.Reason}
		if !perr.Handle.IsZero() {
			h := HandleToDTO(perr.Handle)
			dto.Handle = &h
		}
		return dto
	case errors.As(err, &ierr):
		return ErrorDTO{Code: CodeInvocation, Message: ierr.Message, Method: ierr.Method.String()}
	case errors.As(err, &aerr):
		return ErrorDTO{Code: CodeAsync, Message: aerr.Message}
	case errors.As(err, &terr):
		msg := "unreachable"
		if terr.Err != nil {
			msg = terr.Err.Error()
		}
		return ErrorDTO{Code: CodeTransport, Message: msg, Op: terr.Op}
	case errors.Is(err, host.ErrContextClosed):
		return ErrorDTO{Code: CodeClosed, Message: err.Error()}
	}
	return ErrorDTO{Code: CodeInternal, Message: err.Error()}
}

// ErrorFromDTO restores the typed error ErrorToDTO classified.
func ErrorFromDTO(dto ErrorDTO) error {
	switch dto.Code {
	case CodeProtocol:
		perr := &host.ProtocolError{Seq: dto.Seq, Op: dto.Op, Reason: dto.Reason}
		if dto.Handle != nil {
			perr.Handle, _ = HandleFromDTO(*dto.Handle)
		}
		return perr
	case CodeInvocation:
		method, _ := native.ParseMethod(dto.Method)
		return &host.InvocationError{Method: method, Message: dto.Message}
	case CodeAsync:
		return &host.AsyncHostError{Message: dto.Message}
	case CodeTransport:
		return &host.TransportError{Op: dto.Op, Err: errors.New(dto.Message)}
	case CodeClosed:
		return host.ErrContextClosed
	}
	return errors.New(dto.Message)
}
