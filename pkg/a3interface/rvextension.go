package a3interface

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"
import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/OCAP2/facecsv/internal/dispatcher"
)

// errNoHandler is reported for commands without a registered handler.
var errNoHandler = errors.New("no handler registered")

// Config defines how calls to this extension will be handled
var Config configStruct = configStruct{}

func init() {
	Config.Init()
}

// called by the host to get the version of the extension
//
//export RVExtensionVersion
func RVExtensionVersion(output *C.char, outputsize C.size_t) {
	replyToSyncArmaCall(Config.rvExtensionVersion, output, outputsize)
}

// called by the host as: "facecsv" callExtension ":COMMAND:|arg1|arg2"
//
//export RVExtension
func RVExtension(output *C.char, outputsize C.size_t, input *C.char) {
	command, args := splitCommand(C.GoString(input))

	if command == ":TIMESTAMP:" {
		replyToSyncArmaCall(getTimestamp(), output, outputsize)
		return
	}

	replyToSyncArmaCall(dispatch(command, args), output, outputsize)
}

// called by the host as: "facecsv" callExtension [":COMMAND:", [args...]]
//
//export RVExtensionArgs
func RVExtensionArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	command := C.GoString(input)
	args := parseArgsFromC(argv, argc)
	replyToSyncArmaCall(dispatch(command, args), output, outputsize)
}

// dispatch routes one call and formats the reply.
func dispatch(command string, args []string) string {
	d := Config.dispatcher
	if d == nil || !d.HasHandler(command) {
		return formatDispatchResponse(command, nil, errNoHandler)
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatDispatchResponse(command, result, err)
}

// splitCommand separates the plain-string call form ":CMD:|a|b" into the
// command and its arguments.
func splitCommand(input string) (string, []string) {
	parts := strings.Split(input, "|")
	if len(parts) == 1 {
		return parts[0], nil
	}
	return parts[0], parts[1:]
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	var offset = unsafe.Sizeof(uintptr(0))
	data := make([]string, 0, int(argc))
	for index := C.int(0); index < argc; index++ {
		data = append(data, C.GoString(*argv))
		argv = (**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + offset))
	}
	return data
}

// formatDispatchResponse renders a result as a host array literal:
// ["ok", cmd], ["ok", cmd, result] or ["error", cmd, message].
func formatDispatchResponse(command string, result any, err error) string {
	cmd := quote(command)
	if err != nil {
		return fmt.Sprintf(`["error", %s, %s]`, cmd, quote(err.Error()))
	}
	if result == nil {
		return fmt.Sprintf(`["ok", %s]`, cmd)
	}
	encoded, eErr := encodeValue(result)
	if eErr != nil {
		return fmt.Sprintf(`["error", %s, %s]`, cmd, quote(eErr.Error()))
	}
	return fmt.Sprintf(`["ok", %s, %s]`, cmd, encoded)
}

// encodeValue renders strings and arrays in host syntax; anything else
// (numbers, maps, structs) is JSON encoded.
func encodeValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return quote(val), nil
	case []string:
		parts := make([]string, len(val))
		for i, s := range val {
			parts[i] = quote(s)
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			enc, err := encodeValue(item)
			if err != nil {
				return "", err
			}
			parts[i] = enc
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("encode result: %w", err)
		}
		return string(b), nil
	}
}

// quote renders s as a host string literal, where a quote is escaped by doubling it.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// replyToSyncArmaCall copies the response into the host's output buffer, truncating if needed.
func replyToSyncArmaCall(response string, output *C.char, outputsize C.size_t) {
	if outputsize == 0 {
		return
	}
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	var size = C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
	// keep the buffer NUL-terminated when truncated
	*(*C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(output)) + uintptr(size-1))) = 0
}

func getTimestamp() string {
	return strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
}
