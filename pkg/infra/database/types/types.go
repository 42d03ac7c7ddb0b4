package types

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UUIDArray maps to a postgres uuid[] column. An empty array is stored as '{}'.
type UUIDArray []uuid.UUID

func (u UUIDArray) Value() (driver.Value, error) {
	return pq.Array(u.Strings()).Value()
}

func (u *UUIDArray) Scan(value interface{}) error {
	if value == nil {
		*u = nil
		return nil
	}

	var strs []string
	if err := pq.Array(&strs).Scan(value); err != nil {
		return fmt.Errorf("failed to scan UUID array: %w", err)
	}

	ids := make(UUIDArray, 0, len(strs))
	for _, str := range strs {
		id, err := uuid.Parse(strings.TrimSpace(str))
		if err != nil {
			return fmt.Errorf("failed to parse UUID %s: %w", str, err)
		}
		ids = append(ids, id)
	}

	*u = ids
	return nil
}

func (u UUIDArray) Strings() []string {
	strs := make([]string, len(u))
	for i, id := range u {
		strs[i] = id.String()
	}
	return strs
}
