//go:build js && wasm

// Command glance-viewer is the browser side of the report page. It is
// compiled into the embedded assets of the web package with
//
//	go generate ./internal/web
package main

import (
	"syscall/js"

	"go.uber.org/zap"

	"github.com/verustcode/glance/internal/viewer/dom"
	"github.com/verustcode/glance/pkg/logger"
)

func main() {
	if err := logger.Init(logger.Config{Level: "info", Format: "text"}); err != nil {
		panic(err)
	}

	binding, err := dom.Bind(js.Global().Get("document"))
	if err != nil {
		logger.Warn("Report viewer not started", zap.Error(err))
		return
	}
	defer binding.Release()

	select {}
}
