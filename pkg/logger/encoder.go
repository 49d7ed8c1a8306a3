package logger

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferpool = buffer.NewPool()

// kvConsoleEncoder prints the entry header like the console encoder and the
// fields as space separated key=value pairs
type kvConsoleEncoder struct {
	zapcore.Encoder
	cfg zapcore.EncoderConfig
}

func newKVConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &kvConsoleEncoder{
		Encoder: zapcore.NewConsoleEncoder(cfg),
		cfg:     cfg,
	}
}

func (e *kvConsoleEncoder) Clone() zapcore.Encoder {
	return &kvConsoleEncoder{
		Encoder: e.Encoder.Clone(),
		cfg:     e.cfg,
	}
}

func (e *kvConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := bufferpool.Get()
	sep := e.cfg.ConsoleSeparator

	header := &stringArray{}
	if e.cfg.TimeKey != "" && e.cfg.EncodeTime != nil {
		e.cfg.EncodeTime(entry.Time, header)
	}
	if e.cfg.LevelKey != "" && e.cfg.EncodeLevel != nil {
		e.cfg.EncodeLevel(entry.Level, header)
	}
	if e.cfg.NameKey != "" && entry.LoggerName != "" {
		header.AppendString(entry.LoggerName)
	}
	if e.cfg.CallerKey != "" && entry.Caller.Defined && e.cfg.EncodeCaller != nil {
		e.cfg.EncodeCaller(entry.Caller, header)
	}
	for _, s := range header.elems {
		buf.AppendString(s)
		buf.AppendString(sep)
	}

	if e.cfg.MessageKey != "" {
		buf.AppendString(entry.Message)
	}
	for _, field := range fields {
		buf.AppendString(sep)
		buf.AppendString(field.Key)
		buf.AppendByte('=')
		appendFieldValue(buf, field)
	}
	if entry.Stack != "" && e.cfg.StacktraceKey != "" {
		buf.AppendString(zapcore.DefaultLineEnding)
		buf.AppendString(entry.Stack)
	}

	if e.cfg.LineEnding != "" {
		buf.AppendString(e.cfg.LineEnding)
	} else {
		buf.AppendString(zapcore.DefaultLineEnding)
	}
	return buf, nil
}

// stringArray collects the output of zap's primitive encoders
type stringArray struct {
	elems []string
}

func (s *stringArray) add(v any)                      { s.elems = append(s.elems, fmt.Sprint(v)) }
func (s *stringArray) AppendBool(v bool)              { s.add(v) }
func (s *stringArray) AppendByteString(v []byte)      { s.elems = append(s.elems, string(v)) }
func (s *stringArray) AppendComplex128(v complex128)  { s.add(v) }
func (s *stringArray) AppendComplex64(v complex64)    { s.add(v) }
func (s *stringArray) AppendFloat64(v float64)        { s.add(v) }
func (s *stringArray) AppendFloat32(v float32)        { s.add(v) }
func (s *stringArray) AppendInt(v int)                { s.add(v) }
func (s *stringArray) AppendInt64(v int64)            { s.add(v) }
func (s *stringArray) AppendInt32(v int32)            { s.add(v) }
func (s *stringArray) AppendInt16(v int16)            { s.add(v) }
func (s *stringArray) AppendInt8(v int8)              { s.add(v) }
func (s *stringArray) AppendString(v string)          { s.elems = append(s.elems, v) }
func (s *stringArray) AppendUint(v uint)              { s.add(v) }
func (s *stringArray) AppendUint64(v uint64)          { s.add(v) }
func (s *stringArray) AppendUint32(v uint32)          { s.add(v) }
func (s *stringArray) AppendUint16(v uint16)          { s.add(v) }
func (s *stringArray) AppendUint8(v uint8)            { s.add(v) }
func (s *stringArray) AppendUintptr(v uintptr)        { s.add(v) }
func (s *stringArray) AppendDuration(v time.Duration) { s.elems = append(s.elems, v.String()) }
func (s *stringArray) AppendTime(v time.Time)         { s.elems = append(s.elems, v.String()) }
func (s *stringArray) AppendReflected(v any) error    { s.add(v); return nil }
func (s *stringArray) AppendArray(v zapcore.ArrayMarshaler) error {
	return v.MarshalLogArray(s)
}
func (s *stringArray) AppendObject(zapcore.ObjectMarshaler) error {
	return nil // objects are not flattened in key=value output
}

func appendFieldValue(buf *buffer.Buffer, field zapcore.Field) {
	switch field.Type {
	case zapcore.StringType:
		buf.AppendString(field.String)
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		buf.AppendInt(field.Integer)
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		buf.AppendUint(uint64(field.Integer))
	case zapcore.Float64Type:
		buf.AppendFloat(math.Float64frombits(uint64(field.Integer)), 64)
	case zapcore.Float32Type:
		buf.AppendFloat(float64(math.Float32frombits(uint32(field.Integer))), 32)
	case zapcore.BoolType:
		buf.AppendBool(field.Integer == 1)
	case zapcore.DurationType:
		buf.AppendString(time.Duration(field.Integer).String())
	case zapcore.TimeType:
		t := time.Unix(0, field.Integer)
		if loc, ok := field.Interface.(*time.Location); ok {
			t = t.In(loc)
		}
		buf.AppendString(t.Format(time.RFC3339))
	case zapcore.TimeFullType:
		buf.AppendString(field.Interface.(time.Time).Format(time.RFC3339))
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok && err != nil {
			buf.AppendString(err.Error())
		} else {
			buf.AppendString("<nil>")
		}
	case zapcore.StringerType:
		if stringer, ok := field.Interface.(fmt.Stringer); ok {
			buf.AppendString(stringer.String())
		}
	default:
		if field.Interface != nil {
			buf.AppendString(fmt.Sprint(field.Interface))
		}
	}
}
