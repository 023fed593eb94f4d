/*
Package ports defines the driven ports (interfaces) around the reasoning-graph core.

These interfaces decouple the driver from the outside world, allowing it to
pull steps from mocks, scenario files or live language-model APIs, and to
archive finished runs in memory, on disk or in Redis.

# Key Interfaces

  - StepSource: Produces the ordered reasoning steps for a query, one at a time.
  - RunStore: Persists archived run records.
*/
package ports
