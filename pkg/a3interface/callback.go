package a3interface

/*
#include <stdlib.h>

typedef int (*extensionCallback)(char const *name, char const *function, char const *data);

static inline int runExtensionCallback(extensionCallback fnc, char const *name, char const *function, char const *data)
{
	if (fnc == NULL) {
		return -1;
	}
	return fnc(name, function, data);
}
*/
import "C"

import (
	"encoding/json"
	"sync"
	"unsafe"
)

var (
	callbackMu  sync.Mutex
	callbackFnc C.extensionCallback
)

// called by the host once at load time with its callback pointer
//
//export RVExtensionRegisterCallback
func RVExtensionRegisterCallback(fnc C.extensionCallback) {
	callbackMu.Lock()
	defer callbackMu.Unlock()
	callbackFnc = fnc
}

// WriteArmaCallback sends an asynchronous result to the host. The data
// values are sent as a JSON array. It reports false when no callback is
// registered or the host rejected the call.
func WriteArmaCallback(function string, data ...string) bool {
	callbackMu.Lock()
	defer callbackMu.Unlock()

	if callbackFnc == nil {
		return false
	}

	payload := "[]"
	if len(data) > 0 {
		if b, err := json.Marshal(data); err == nil {
			payload = string(b)
		}
	}

	cName := C.CString(Config.extensionName)
	defer C.free(unsafe.Pointer(cName))
	cFunction := C.CString(function)
	defer C.free(unsafe.Pointer(cFunction))
	cData := C.CString(payload)
	defer C.free(unsafe.Pointer(cData))

	return C.runExtensionCallback(callbackFnc, cName, cFunction, cData) >= 0
}
