package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync flushes any buffered writes, e.g. at shutdown.
	Sync() error
}

// ConsoleAppender will create human readable lines from log events and write them to
// the desired output sink.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender creates a new appender that prints to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// callerToString gives the file/line in the form of `<pkg dir>/<file>:<line>`.
func callerToString(caller *zapcore.EntryCaller) string {
	// the file returned by `runtime.Caller` is a full path and always contains '/'
	// to separate directories, including on windows
	fullPath := caller.File
	idx := strings.LastIndexByte(fullPath, '/')
	if idx == -1 {
		return fmt.Sprintf("%s:%d", fullPath, caller.Line)
	}
	idx = strings.LastIndexByte(fullPath[:idx], '/')
	if idx == -1 {
		return fmt.Sprintf("%s:%d", fullPath, caller.Line)
	}

	return fmt.Sprintf("%s:%d", fullPath[idx+1:], caller.Line)
}

// Write outputs the entry to stdout with a human readable format.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	const maxLength = 10
	toPrint := make([]string, 0, maxLength)
	toPrint = append(toPrint, entry.Time.Format(DefaultTimeFormatStr))
	toPrint = append(toPrint, strings.ToUpper(entry.Level.String()))
	toPrint = append(toPrint, entry.LoggerName)
	if entry.Caller.Defined {
		toPrint = append(toPrint, callerToString(&entry.Caller))
	}
	toPrint = append(toPrint, entry.Message)
	if len(fields) == 0 {
		fmt.Fprintln(appender.Writer, strings.Join(toPrint, "\t"))
		return nil
	}

	// use zap's json encoder which will encode the slice of fields in-order, as
	// opposed to the random iteration order of a map
	jsonEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := jsonEncoder.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		fmt.Fprintln(appender.Writer, strings.Join(toPrint, "\t"))
		return err
	}
	toPrint = append(toPrint, string(buf.Bytes()))
	fmt.Fprintln(appender.Writer, strings.Join(toPrint, "\t"))

	return nil
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}
