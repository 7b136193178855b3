package gate

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/bufgate/bufgate/internal/buffer"
	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
)

// FuzzValidate feeds arbitrary payloads through the full pipeline
// twice and requires the same outcome both times. No input may panic
// or commit trust flags on a failing path.
func FuzzValidate(f *testing.F) {
	f.Add([]byte("hello world"))
	f.Add([]byte("{}"))
	f.Add([]byte(`{"a":1,"b":[true,null]}`))
	f.Add([]byte{0xff, 0xfe})
	f.Add([]byte("UPPER CASE"))
	f.Add([]byte("%2e%2e%2f"))
	f.Add([]byte(strings.Repeat("x", model.MaxBufferSize)))
	f.Add([]byte(""))

	pol, err := policy.New(*policy.DefaultConfig(), true)
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		run := func() string {
			v, err := New(DefaultContext(), nil, pol)
			if err != nil {
				t.Fatalf("gate.New: %v", err)
			}
			defer v.Destroy()

			b := buffer.New(model.LevelStandard)
			defer b.Destroy()
			if err := b.SetData(data); err != nil {
				code, _ := model.CodeOf(err)
				return "setdata:" + code.String()
			}

			res, err := v.Validate(b)
			if err != nil {
				if b.Validated() {
					t.Fatal("trust flags committed on a failing path")
				}
				code, _ := model.CodeOf(err)
				return "reject:" + code.String()
			}
			if !b.Validated() || !b.Normalized() {
				t.Fatal("success without committed trust flags")
			}
			return fmt.Sprintf("pass:%016x:%d", math.Float64bits(res.Cost), res.Zone)
		}

		first := run()
		second := run()
		if first != second {
			t.Errorf("outcome changed across runs: %s then %s", first, second)
		}
	})
}
