package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/juju/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/ferrolang/ferro/pkg/value"
)

// Program is what the compiler emits and the VM consumes:
// (instructions, constants, function_table) per spec §4.3.
type Program struct {
	Instructions []Instruction
	Constants    []value.Value
	Functions    *FunctionTable
}

// wordSize is the fixed operand width spec §6 calls "platform word".
// Ferro fixes this at 8 bytes regardless of GOARCH so that persisted
// bytecode is portable across build targets for as long as it's kept
// around (spec §6 still does not promise cross-version stability).
const wordSize = 8

// containerMagic and containerVersion identify ferro's persistence
// container. Per spec §6 no magic number is mandated for the wire
// encoding itself, but a container needs one to fail fast on garbage
// input; the format is explicitly unstable across ferro versions.
const (
	containerMagic   = "FERB"
	containerVersion = uint16(1)
)

// Encode serializes a Program to ferro's bytecode container: magic,
// version, the instruction count and little-endian instruction stream
// (opcode byte + fixed width operand word for opcodes that carry one),
// a length-prefixed constant pool, then the function table.
func (p *Program) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString(containerMagic)
	if err := binary.Write(buf, binary.LittleEndian, containerVersion); err != nil {
		return nil, errors.Annotate(err, "writing version")
	}

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(p.Instructions))); err != nil {
		return nil, errors.Annotate(err, "writing instruction count")
	}
	for _, inst := range p.Instructions {
		buf.WriteByte(byte(inst.Op))
		if inst.Op.usesOperand() {
			if err := binary.Write(buf, binary.LittleEndian, inst.Operand); err != nil {
				return nil, errors.Annotate(err, "writing operand")
			}
		}
	}

	if err := encodeConstants(buf, p.Constants); err != nil {
		return nil, errors.Annotate(err, "writing constants")
	}

	if err := encodeFunctionTable(buf, p.Functions); err != nil {
		return nil, errors.Annotate(err, "writing function table")
	}

	return buf.Bytes(), nil
}

// Decode parses a container produced by Encode.
func Decode(data []byte) (*Program, error) {
	r := bytes.NewReader(data)

	magic := make([]byte, len(containerMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, errors.Annotate(err, "reading magic")
	}
	if string(magic) != containerMagic {
		return nil, errors.New("invalid bytecode container magic")
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, errors.Annotate(err, "reading version")
	}
	if version != containerVersion {
		return nil, errors.Errorf("unsupported bytecode container version %d", version)
	}

	var numInst uint32
	if err := binary.Read(r, binary.LittleEndian, &numInst); err != nil {
		return nil, errors.Annotate(err, "reading instruction count")
	}
	instructions := make([]Instruction, numInst)
	for i := range instructions {
		opByte, err := r.ReadByte()
		if err != nil {
			return nil, errors.Annotatef(err, "reading opcode %d", i)
		}
		op := Opcode(opByte)
		var operand uint64
		if op.usesOperand() {
			if err := binary.Read(r, binary.LittleEndian, &operand); err != nil {
				return nil, errors.Annotatef(err, "reading operand %d", i)
			}
		}
		instructions[i] = Instruction{Op: op, Operand: operand}
	}

	constants, err := decodeConstants(r)
	if err != nil {
		return nil, errors.Annotate(err, "reading constants")
	}

	functions, err := decodeFunctionTable(r)
	if err != nil {
		return nil, errors.Annotate(err, "reading function table")
	}

	return &Program{Instructions: instructions, Constants: constants, Functions: functions}, nil
}

// Fingerprint returns a content hash of the encoded program, included
// in the disassembler's JSON and YAML dumps.
func (p *Program) Fingerprint() (string, error) {
	encoded, err := p.Encode()
	if err != nil {
		return "", errors.Trace(err)
	}
	sum := blake2b.Sum256(encoded)
	return fmt.Sprintf("%x", sum[:8]), nil
}

const (
	constTagInt  byte = 0
	constTagBool byte = 1
	constTagStr  byte = 2
)

func encodeConstants(buf *bytes.Buffer, constants []value.Value) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(constants))); err != nil {
		return err
	}
	for _, c := range constants {
		switch c.Kind() {
		case value.KindInt:
			buf.WriteByte(constTagInt)
			if err := binary.Write(buf, binary.LittleEndian, c.AsInt()); err != nil {
				return err
			}
		case value.KindBool:
			buf.WriteByte(constTagBool)
			b := byte(0)
			if c.AsBool() {
				b = 1
			}
			buf.WriteByte(b)
		case value.KindStr:
			buf.WriteByte(constTagStr)
			s := c.AsStr()
			if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
				return err
			}
			buf.WriteString(s)
		default:
			return errors.Errorf("constant pool cannot hold a %s value", c.Kind())
		}
	}
	return nil
}

func decodeConstants(r *bytes.Reader) ([]value.Value, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	out := make([]value.Value, n)
	for i := range out {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch tag {
		case constTagInt:
			var iv int32
			if err := binary.Read(r, binary.LittleEndian, &iv); err != nil {
				return nil, err
			}
			out[i] = value.Int(iv)
		case constTagBool:
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			out[i] = value.Bool(b != 0)
		case constTagStr:
			var slen uint32
			if err := binary.Read(r, binary.LittleEndian, &slen); err != nil {
				return nil, err
			}
			sb := make([]byte, slen)
			if _, err := io.ReadFull(r, sb); err != nil {
				return nil, err
			}
			out[i] = value.Str(string(sb))
		default:
			return nil, errors.Errorf("unknown constant tag %d", tag)
		}
	}
	return out, nil
}

func encodeFunctionTable(buf *bytes.Buffer, ft *FunctionTable) error {
	entries := ft.Entries()
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(e.Name))); err != nil {
			return err
		}
		buf.WriteString(e.Name)
		if err := binary.Write(buf, binary.LittleEndian, uint32(e.EntryPC)); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(e.NumParams)); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(e.NumLocals)); err != nil {
			return err
		}
	}
	return nil
}

func decodeFunctionTable(r *bytes.Reader) (*FunctionTable, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	ft := NewFunctionTable()
	for i := uint32(0); i < n; i++ {
		var nameLen uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, err
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, err
		}
		var entryPC, numParams, numLocals uint32
		if err := binary.Read(r, binary.LittleEndian, &entryPC); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &numParams); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &numLocals); err != nil {
			return nil, err
		}
		if _, err := ft.Add(FunctionEntry{
			Name:      string(nameBytes),
			EntryPC:   int(entryPC),
			NumParams: int(numParams),
			NumLocals: int(numLocals),
		}); err != nil {
			return nil, err
		}
	}
	return ft, nil
}
