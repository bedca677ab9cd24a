package model

import "testing"

func TestJSONMapValueNilMapEncodesAsEmptyObject(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != "{}" {
		t.Fatalf("expected {} for a nil map, got %v", v)
	}
}

func TestJSONMapScanRoundTrip(t *testing.T) {
	original := JSONMap{"region": "eu", "weight": float64(3)}
	encoded, err := original.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var decoded JSONMap
	if err := decoded.Scan(encoded); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if decoded["region"] != "eu" || decoded["weight"] != float64(3) {
		t.Fatalf("unexpected round trip: %+v", decoded)
	}
}

func TestJSONMapScanHandlesNilAndEmptyBytes(t *testing.T) {
	var fromNil JSONMap
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if fromNil == nil || len(fromNil) != 0 {
		t.Fatalf("expected an empty non-nil map from a nil source, got %+v", fromNil)
	}

	var fromEmpty JSONMap
	if err := fromEmpty.Scan([]byte{}); err != nil {
		t.Fatalf("scan empty bytes: %v", err)
	}
	if fromEmpty == nil || len(fromEmpty) != 0 {
		t.Fatalf("expected an empty non-nil map from empty bytes, got %+v", fromEmpty)
	}
}

func TestJSONMapScanRejectsUnsupportedType(t *testing.T) {
	var m JSONMap
	if err := m.Scan(42); err == nil {
		t.Fatal("expected an error scanning an unsupported source type")
	}
}
