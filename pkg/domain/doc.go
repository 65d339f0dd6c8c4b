/*
Package domain contains the core domain models for the waypoint workflow engine.

It defines the entities the validator, resolver and executor operate on. This package is
kept pure and free of I/O or persistence concerns, following Hexagonal Architecture
principles.

# Key Entities

  - Workflow: A named directed graph that owns its Nodes and Edges and indexes them.
  - Node: A vertex with a role (Start, Message, Condition, End) and an optional payload.
  - Edge: A directed arc between two nodes, optionally tagged with a branch outcome (Yes/No).
  - Trace: The ordered node snapshots produced by executing a workflow.
*/
package domain
