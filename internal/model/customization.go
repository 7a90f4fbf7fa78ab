package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CustomizationArea is one customized print area: an uploaded image plus the
// transform the image pipeline produced for it. The engine stores and
// forwards these values, it never interprets them.
type CustomizationArea struct {
	UploadID  int64   `json:"uploadId,omitempty"`
	AreaID    int64   `json:"areaId,omitempty"`
	AreaName  string  `json:"areaName,omitempty"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Shape     string  `json:"shape,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Rotation  float64 `json:"rotation,omitempty"`
	PositionX float64 `json:"positionX,omitempty"`
	PositionY float64 `json:"positionY,omitempty"`
}

// CustomizationPayload travels verbatim from cart item to order item.
type CustomizationPayload struct {
	TemplateID int64               `json:"templateId,omitempty"`
	Areas      []CustomizationArea `json:"areas,omitempty"`
	ImageURLs  []string            `json:"imageUrls,omitempty"`
}

func (p CustomizationPayload) IsZero() bool {
	return p.TemplateID == 0 && len(p.Areas) == 0 && len(p.ImageURLs) == 0
}

// Normalized returns a copy with the image URL list rebuilt from the areas
// plus any extra URLs, deduplicated and with empties dropped. Missing fields
// are simply omitted; normalization never fails.
func (p CustomizationPayload) Normalized() CustomizationPayload {
	out := CustomizationPayload{TemplateID: p.TemplateID, Areas: p.Areas}
	seen := make(map[string]struct{})
	add := func(url string) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		out.ImageURLs = append(out.ImageURLs, url)
	}
	for _, area := range p.Areas {
		add(area.ImageURL)
	}
	for _, url := range p.ImageURLs {
		add(url)
	}
	return out
}

func (p CustomizationPayload) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan tolerates malformed stored payloads: they decode to an empty payload
// instead of failing the whole row load.
func (p *CustomizationPayload) Scan(src interface{}) error {
	if src == nil {
		*p = CustomizationPayload{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported customization column type %T", src)
	}
	if len(raw) == 0 {
		*p = CustomizationPayload{}
		return nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		*p = CustomizationPayload{}
	}
	return nil
}

// OrderCustomization is one cart line's customization metadata as snapshotted
// onto the order at initiation.
type OrderCustomization struct {
	ProductID uint                 `json:"productId"`
	Payload   CustomizationPayload `json:"payload"`
}

type OrderCustomizationList []OrderCustomization

func (l OrderCustomizationList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *OrderCustomizationList) Scan(src interface{}) error {
	return scanJSONList(src, l)
}

// StringList stores a []string as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSONList(src, l)
}

func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// IDList stores a []uint as a JSON text column.
type IDList []uint

func (l IDList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *IDList) Scan(src interface{}) error {
	return scanJSONList(src, l)
}

func (l IDList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

func scanJSONList(src, dst interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported list column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
