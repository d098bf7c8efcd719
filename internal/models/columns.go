// internal/models/columns.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is a []string persisted as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return scanJSON(value, l)
}

func scanJSON(value, target interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}

func (c ProjectConstraints) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ProjectConstraints) Scan(value interface{}) error {
	if value == nil {
		*c = ProjectConstraints{}
		return nil
	}
	return scanJSON(value, c)
}

func (p StyleProfile) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *StyleProfile) Scan(value interface{}) error {
	if value == nil {
		*p = StyleProfile{}
		return nil
	}
	return scanJSON(value, p)
}

func (t ReferenceTargets) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *ReferenceTargets) Scan(value interface{}) error {
	if value == nil {
		*t = ReferenceTargets{}
		return nil
	}
	return scanJSON(value, t)
}
