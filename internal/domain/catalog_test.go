package domain

import "testing"

func TestLegacyStringCategoriesNormalize(t *testing.T) {
	doc := []byte(`{"categories":["Rings",{"name":"Collares","id":"f42","image":"http://x/c.jpg"}],"products":[]}`)

	catalog, err := UnmarshalCatalog(doc)
	if err != nil {
		t.Fatalf("UnmarshalCatalog returned error: %v", err)
	}
	if len(catalog.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(catalog.Categories))
	}
	if catalog.Categories[0].Name != "Rings" || catalog.Categories[0].ID != "" {
		t.Fatalf("legacy entry not normalized: %+v", catalog.Categories[0])
	}
	if catalog.Categories[1].ID != "f42" {
		t.Fatalf("object entry mangled: %+v", catalog.Categories[1])
	}
}

func TestRingsDocumentScenario(t *testing.T) {
	catalog, err := UnmarshalCatalog([]byte(`{"categories":["Rings"],"products":[]}`))
	if err != nil {
		t.Fatalf("UnmarshalCatalog returned error: %v", err)
	}
	if len(catalog.Categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(catalog.Categories))
	}
	got := catalog.Categories[0]
	if got.Name != "Rings" || got.ID != "" || got.Image != "" {
		t.Fatalf("unexpected category: %+v", got)
	}
	if catalog.Products == nil || len(catalog.Products) != 0 {
		t.Fatalf("expected empty products slice, got %v", catalog.Products)
	}
}

func TestEqualBySerializedForm(t *testing.T) {
	a := &Catalog{
		Categories: []Category{{Name: "Anillos"}},
		Products:   []Product{{ID: 1, Title: "A", Category: "Anillos"}},
	}
	b := a.Clone()
	if !Equal(a, b) {
		t.Fatal("clone should compare equal")
	}
	b.Products[0].Title = "B"
	if Equal(a, b) {
		t.Fatal("differing catalogs should not compare equal")
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := &Catalog{
		Categories: []Category{{Name: "Anillos"}},
		Products:   []Product{{ID: 1, Title: "A"}},
	}
	b := a.Clone()
	b.Categories[0].Name = "Otros"
	b.Products[0].Title = "Z"
	if a.Categories[0].Name != "Anillos" || a.Products[0].Title != "A" {
		t.Fatal("clone shares backing storage with original")
	}
}

func TestIsInlineImage(t *testing.T) {
	if !IsInlineImage("data:image/png;base64,AA==") {
		t.Fatal("data uri not detected")
	}
	if IsInlineImage("https://example.com/x.png") {
		t.Fatal("url misdetected as inline data")
	}
	if IsInlineImage("") {
		t.Fatal("empty value misdetected as inline data")
	}
}
