package mcp

import (
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

type createWorkflowInput struct {
	Name string `mapstructure:"name"`
}

type workflowRef struct {
	WorkflowID string `mapstructure:"workflow_id"`
}

type createNodeInput struct {
	WorkflowID          string `mapstructure:"workflow_id"`
	ID                  string `mapstructure:"id"`
	Type                string `mapstructure:"type"`
	Status              string `mapstructure:"status"`
	Message             string `mapstructure:"message"`
	ConditionText       string `mapstructure:"condition_text"`
	ConditionExpression string `mapstructure:"condition_expression"`
}

func (in createNodeInput) node() domain.Node {
	return domain.Node{
		ID:                  in.ID,
		Type:                domain.NodeType(in.Type),
		Status:              domain.NodeStatus(in.Status),
		Message:             in.Message,
		ConditionText:       in.ConditionText,
		ConditionExpression: in.ConditionExpression,
	}
}

type createEdgeInput struct {
	WorkflowID  string `mapstructure:"workflow_id"`
	StartNodeID string `mapstructure:"start_node_id"`
	EndNodeID   string `mapstructure:"end_node_id"`
	Status      string `mapstructure:"status"`
}

func (in createEdgeInput) edge() domain.Edge {
	return domain.Edge{StartNodeID: in.StartNodeID, EndNodeID: in.EndNodeID, Status: domain.EdgeStatus(in.Status)}
}

// decodeArgs copies tool arguments into dst. Numbers are accepted where strings are expected
// since clients often send numeric ids.
func decodeArgs(args map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
