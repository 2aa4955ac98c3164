package canvas

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
)

func TestElementJSONFlattensVariantFields(t *testing.T) {
	el := &Element{
		ID:         "el-1",
		Name:       "Headline",
		ArtboardID: "board-1",
		Type:       TypeText,
		Position:   geometry.Point{X: 10, Y: 20},
		Size:       geometry.Size{Width: 300, Height: 60},
		Opacity:    1,
		SyncGroup:  "headline",
		Props:      &TextProps{Text: "Win Big", FontSize: 48, FontWeight: 700, Color: "#1f2430", TextAlign: AlignCenter, LineHeight: 1.1},
	}

	data, err := json.Marshal(el)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal into map: %v", err)
	}
	if _, nested := raw["props"]; nested {
		t.Error("variant fields should be flattened, found a props object")
	}
	if got := raw["text"]; got != "Win Big" {
		t.Errorf(`raw["text"] = %v, want "Win Big"`, got)
	}
	if got := raw["fontSize"]; got != 48.0 {
		t.Errorf(`raw["fontSize"] = %v, want 48`, got)
	}
	if _, present := raw["visible"]; present {
		t.Error("unset visible flag should be omitted")
	}

	var back Element
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal back: %v", err)
	}
	if !reflect.DeepEqual(&back, el) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", &back, el)
	}
}

func TestElementJSONPerType(t *testing.T) {
	tests := []struct {
		name string
		el   *Element
	}{
		{"image", &Element{ID: "i", ArtboardID: "b", Type: TypeImage, Opacity: 1, Props: &ImageProps{Src: "file://asset_1", Fit: FitCover, MaintainAspect: true}}},
		{"shape", &Element{ID: "s", ArtboardID: "b", Type: TypeShape, Opacity: 0.5, Props: &ShapeProps{Fill: "#ff4757", Radius: 12}}},
		{"slot", &Element{ID: "g", ArtboardID: "b", Type: TypeSlot, Opacity: 1, Props: &SlotProps{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.el)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var back Element
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(&back, tt.el) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", &back, tt.el)
			}
		})
	}
}

func TestElementUnmarshalUnknownType(t *testing.T) {
	var el Element
	err := json.Unmarshal([]byte(`{"id":"x","type":"video"}`), &el)
	if err == nil {
		t.Fatal("expected an error for an unknown element type")
	}
}

func TestCloneIsDeep(t *testing.T) {
	vis := false
	el := &Element{
		ID:      "el-1",
		Type:    TypeShape,
		Visible: &vis,
		Props:   &ShapeProps{Fill: "#111111"},
	}
	c := el.Clone()
	*c.Visible = true
	c.Shape().Fill = "#222222"

	if *el.Visible {
		t.Error("clone shares the visible flag")
	}
	if el.Shape().Fill != "#111111" {
		t.Error("clone shares props")
	}
}

func TestHydrateRepair(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantSeed bool
	}{
		{"empty payload", "", true},
		{"invalid json", "{not json", true},
		{"missing artboards", `{"elements":[]}`, true},
		{"missing elements", `{"artboards":[{"id":"b1","width":100,"height":100}]}`, true},
		{"intact empty pool", `{"artboards":[{"id":"b1","name":"B","width":100,"height":100,"background":"#fff"}],"elements":[],"selectedArtboardId":"b1","selectedElementIds":[],"fonts":[],"settings":{"snapToGrid":true,"gridSize":8,"showGuides":true,"zoom":1}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, repaired := Hydrate([]byte(tt.data))
			if len(st.Artboards) == 0 {
				t.Fatal("hydrated state has no artboards")
			}
			if tt.wantSeed {
				if !repaired {
					t.Error("expected the repair flag for a reseeded document")
				}
				if len(st.Artboards) != 2 {
					t.Errorf("seed artboard count = %d, want 2", len(st.Artboards))
				}
			} else if repaired {
				t.Error("intact document reported as repaired")
			}
		})
	}
}

func TestHydrateDropsOrphansAndFixesSelection(t *testing.T) {
	doc := `{
		"artboards":[{"id":"b1","name":"B","width":100,"height":100,"background":"#fff"}],
		"elements":[
			{"id":"keep","artboardId":"b1","type":"shape","position":{"x":0,"y":0},"size":{"width":10,"height":10},"opacity":1,"layer":5,"fill":"#000"},
			{"id":"orphan","artboardId":"gone","type":"shape","position":{"x":0,"y":0},"size":{"width":10,"height":10},"opacity":1,"layer":0,"fill":"#000"}
		],
		"selectedArtboardId":"gone",
		"selectedElementIds":["keep","orphan"],
		"fonts":[],
		"settings":{"snapToGrid":true,"gridSize":8,"showGuides":true,"zoom":1}
	}`
	st, repaired := Hydrate([]byte(doc))
	if !repaired {
		t.Error("expected the repair flag")
	}
	if len(st.Elements) != 1 || st.Elements[0].ID != "keep" {
		t.Fatalf("elements = %v, want only keep", st.Elements)
	}
	if st.Elements[0].Layer != 0 {
		t.Errorf("layer = %d after renormalization, want 0", st.Elements[0].Layer)
	}
	if st.SelectedArtboardID != "b1" {
		t.Errorf("selectedArtboardId = %q, want b1", st.SelectedArtboardID)
	}
	if !reflect.DeepEqual(st.SelectedElementIDs, []string{"keep"}) {
		t.Errorf("selectedElementIds = %v, want [keep]", st.SelectedElementIDs)
	}
}

func TestStateRoundTrip(t *testing.T) {
	st := NewDefaultState()
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, repaired := Hydrate(data)
	if repaired {
		t.Error("freshly seeded state needed repair after a round trip")
	}
	if len(back.Artboards) != 2 || len(back.Elements) != 2 {
		t.Errorf("round trip lost content: %d artboards, %d elements", len(back.Artboards), len(back.Elements))
	}
	if back.Elements[0].Type != TypeSlot {
		t.Errorf("seed element type = %q, want slot", back.Elements[0].Type)
	}
}
