package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCartRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *CartRequest
		wantErr bool
	}{
		{"missing productIds", &CartRequest{}, true},
		{"empty cart", &CartRequest{ProductIDs: []string{}}, false},
		{"cart with ids", &CartRequest{ProductIDs: []string{"a", "b"}, Limit: 3}, false},
		{"negative limit is left to the engine", &CartRequest{ProductIDs: []string{"a"}, Limit: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCartRequest_Decode(t *testing.T) {
	var req CartRequest
	if err := json.Unmarshal([]byte(`{"productIds":["p1","p2"],"limit":4}`), &req); err != nil {
		t.Fatal(err)
	}
	if len(req.ProductIDs) != 2 || req.ProductIDs[0] != "p1" || req.Limit != 4 {
		t.Errorf("decoded %+v", req)
	}
}

func TestProduct_SummaryOmitsInternalFields(t *testing.T) {
	p := &Product{
		ID:           "p1",
		Name:         "Red Shoes",
		Brand:        "Acme",
		Category:     "footwear",
		Description:  "comfortable",
		Tags:         []string{"red"},
		Price:        json.RawMessage(`{"amount":10,"currency":"USD"}`),
		BusinessType: "retail",
		IsActive:     true,
		Source:       "/catalog/shoes.json",
	}
	s := p.Summary()
	if s.ID != "p1" || s.Name != "Red Shoes" || s.BusinessType != "retail" {
		t.Errorf("summary = %+v", s)
	}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	body := string(out)
	if !strings.Contains(body, `"_id":"p1"`) {
		t.Errorf("summary should carry _id: %s", body)
	}
	if !strings.Contains(body, `"price":{"amount":10,"currency":"USD"}`) {
		t.Errorf("price should pass through unmodified: %s", body)
	}
	for _, field := range []string{"isActive", "source", "createdAt", "tags"} {
		if strings.Contains(body, field) {
			t.Errorf("summary should not expose %s: %s", field, body)
		}
	}
}
