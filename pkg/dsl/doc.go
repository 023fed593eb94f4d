/*
Package dsl provides a Go DSL for authoring replay scenarios in code.

It builds the same scenario files the scenario source reads from YAML, using a
fluent builder instead. This is useful for demos, unit tests and scripted
walkthroughs that should not depend on files on disk.

Example usage:

	b := dsl.New()

	b.Add("consciousness").
		Match("conscious", "mind").
		Reasoning("Defining {query}").Confidence(0.9).
		Retrieval("Recalling philosophy of mind").
		Decision("Consciousness is a spectrum").Detail("Synthesis of prior steps")

	src, err := b.Source()
	if err != nil {
		return err
	}
	v := cartography.New(src)
*/
package dsl
