/*
Package ports defines the driven ports (interfaces) for the Waypoint engine.

These interfaces decouple the graph core from storage and coordination backends, so the same
validator and executor run over memory, files, SQL databases or Redis.

# Key Interfaces

  - WorkflowStore: persists workflow aggregates and applies atomic read-modify-write updates.
  - DistributedLocker: serializes mutations of one workflow across replicas.
  - WorkflowService: the operations driving adapters (HTTP, MCP, CLI) call on the engine.

Adapters verify themselves with RunWorkflowStoreContract.
*/
package ports
