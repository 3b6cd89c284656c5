package xsampling_test

import (
	"fmt"

	"github.com/omeyang/xtel/pkg/observability/xsampling"
)

func ExampleParentRatio() {
	s, err := xsampling.ParentRatio(0.1)
	if err != nil {
		panic(err)
	}
	_ = s.SetRate(0.5)
	fmt.Println(s.Description())
	// Output: ParentRatio{0.5}
}
