/*
Package dsl describes workflows as data and imports them into a WorkflowService.

A Definition can be written by hand in YAML (or JSON) or assembled with the fluent Builder:

	def, err := dsl.New("greeting").
		Start("start").Go("ask").
		Message("ask", "hello").Go("check").
		Condition("check", "message == 'hello'").Yes("glad").No("sad").
		Message("glad", "glad you said hello").Go("end").
		Message("sad", "sorry to see you go").Go("end").
		End("end").
		Build()

The same workflow as a file:

	name: greeting
	nodes:
	  - {id: start, type: Start}
	  - {id: ask, type: Message, message: hello}
	  - {id: check, type: Condition, condition_expression: "message == 'hello'"}
	  - {id: glad, type: Message, message: glad you said hello}
	  - {id: sad, type: Message, message: sorry to see you go}
	  - {id: end, type: End}
	edges:
	  - {from: start, to: ask}
	  - {from: ask, to: check}
	  - {from: check, to: glad, status: "Yes"}
	  - {from: check, to: sad, status: "No"}
	  - {from: glad, to: end}
	  - {from: sad, to: end}

Import creates the nodes first and then every edge through the graph validator, so a definition
that breaks a rule is rejected with the same message the API would give.
*/
package dsl
