package postgresadapter

import (
	"database/sql/driver"
	"fmt"

	"github.com/holiman/uint256"
)

// wei stores a uint256 amount in a numeric(78,0) column. The driver hands
// numerics back as decimal text.
type wei uint256.Int

func newWei(value uint256.Int) wei {
	return wei(value)
}

func (w wei) Int() uint256.Int {
	return uint256.Int(w)
}

func (w wei) Value() (driver.Value, error) {
	value := uint256.Int(w)
	return value.Dec(), nil
}

func (w *wei) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("negative amount %d", v)
		}
		*w = wei(*uint256.NewInt(uint64(v)))
		return nil
	case nil:
		*w = wei{}
		return nil
	default:
		return fmt.Errorf("unsupported amount type %T", src)
	}
	parsed, err := uint256.FromDecimal(text)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", text, err)
	}
	*w = wei(*parsed)
	return nil
}
