package cartography_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/cartography"
	"github.com/aretw0/cartography/pkg/adapters/source/mock"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/driver"
	"github.com/aretw0/cartography/pkg/graph"
)

// ExampleNew animates a mock run without delays and prints the resulting log.
func ExampleNew() {
	v := cartography.New(mock.New(),
		cartography.WithPacer(driver.NoopPacer{}),
		cartography.WithNodeIDs(graph.Sequential),
	)

	res, err := v.Run(context.Background(), domain.RunRequest{Query: "Why is the sky blue?", Steps: 3})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(res.Status)
	for _, e := range v.Log(0) {
		fmt.Println(e.StepIndex, e.Kind)
	}
	fmt.Println(len(v.Visual().Links), "links")

	// Output:
	// completed
	// 0 input
	// 1 reasoning
	// 2 retrieval
	// 3 data
	// 3 links
}
