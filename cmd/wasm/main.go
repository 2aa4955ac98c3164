//go:build js && wasm

package main

import (
	"encoding/base64"
	"encoding/json"
	"syscall/js"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/kit"
	"github.com/spinstudio/spinstudio/backend-go/internal/layout"
	"github.com/spinstudio/spinstudio/backend-go/internal/session"
	"github.com/spinstudio/spinstudio/backend-go/internal/surface"
)

// The browser page owns exactly one canvas, so the bridge keeps one
// store and drives it from the JS main thread.
var (
	store *canvas.Store
	ctrl  *surface.Controller
)

func main() {
	store = canvas.NewStore(canvas.NewDefaultState())
	ctrl = surface.NewController(store)

	engine := js.Global().Get("Object").New()

	// Mutations.
	engine.Set("loadCanvas", js.FuncOf(loadCanvas))
	engine.Set("applyOperation", js.FuncOf(applyOperation))
	engine.Set("undo", js.FuncOf(undo))
	engine.Set("redo", js.FuncOf(redo))
	engine.Set("beginGesture", js.FuncOf(beginGesture))
	engine.Set("endGesture", js.FuncOf(endGesture))
	engine.Set("generateLayout", js.FuncOf(generateLayout))

	// Reads.
	engine.Set("getState", js.FuncOf(getState))
	engine.Set("hitTest", js.FuncOf(hitTest))
	engine.Set("canUndo", js.FuncOf(canUndo))
	engine.Set("canRedo", js.FuncOf(canRedo))

	js.Global().Set("spinstudioEngine", engine)
	js.Global().Set("spinstudioWasmReady", js.ValueOf(true))

	// Block forever so the exported funcs stay callable.
	select {}
}

func loadCanvas(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing canvas JSON"})
	}

	state, repaired := canvas.Hydrate([]byte(args[0].String()))
	store = canvas.NewStore(state)
	ctrl = surface.NewController(store)

	return js.ValueOf(map[string]interface{}{"ok": true, "repaired": repaired})
}

// applyOperation takes the same operation JSON the editing socket
// carries, so the page uses one vocabulary online and offline.
func applyOperation(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing operation JSON"})
	}

	var op session.Operation
	if err := json.Unmarshal([]byte(args[0].String()), &op); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	result, applied, err := session.Apply(store, op)
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	out := map[string]interface{}{"ok": true, "applied": applied}
	if result != nil {
		out["result"] = string(result)
	}
	return js.ValueOf(out)
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(store.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(store.Redo())
}

func beginGesture(this js.Value, args []js.Value) interface{} {
	store.BeginGesture()
	return nil
}

func endGesture(this js.Value, args []js.Value) interface{} {
	store.EndGesture()
	return nil
}

// generateLayout runs the whole kit→layout pipeline in the page:
// args are a JSON array of {name, data} files (data base64), a JSON
// array of {width, height} sizes and a replace flag.
func generateLayout(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing kit files or sizes"})
	}

	var files []struct {
		Name string `json:"name"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal([]byte(args[0].String()), &files); err != nil {
		return js.ValueOf(map[string]interface{}{"error": "bad kit files: " + err.Error()})
	}
	uploads := make([]kit.Upload, 0, len(files))
	for _, f := range files {
		data, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return js.ValueOf(map[string]interface{}{"error": "bad file data for " + f.Name})
		}
		uploads = append(uploads, kit.Upload{Name: f.Name, Data: data})
	}

	var sizes []layout.TargetSize
	if err := json.Unmarshal([]byte(args[1].String()), &sizes); err != nil {
		return js.ValueOf(map[string]interface{}{"error": "bad sizes: " + err.Error()})
	}

	replace := false
	if len(args) > 2 && args[2].Type() == js.TypeBoolean {
		replace = args[2].Bool()
	}

	assets, err := kit.Parse(uploads)
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	// No blob store in the page, so images ride along as data URLs.
	summary := kit.Summarize(assets, func(a kit.Asset) string { return a.DataURL() })

	res, err := layout.Generate(summary, sizes, nil)
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	if !store.AttachLayout(res.Artboards, res.Elements, replace) {
		return js.ValueOf(map[string]interface{}{"error": "layout could not be attached"})
	}

	return js.ValueOf(map[string]interface{}{"ok": true, "artboards": len(res.Artboards)})
}

func getState(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(store.State())
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(string(data))
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("")
	}
	artboardID := args[0].String()
	x := args[1].Float()
	y := args[2].Float()

	id, ok := ctrl.HitTest(artboardID, x, y)
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(id)
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(store.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(store.CanRedo())
}
