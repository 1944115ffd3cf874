/*
Package expr provides restricted expression evaluation for workflow
conditions. Conditions are data, often loaded from user-supplied config
files, so the grammar is a small allow-list rather than a script engine.

# Expression Syntax

	<expr> := <comparison>
	        | <expr> 'and' <expr>
	        | <expr> 'or' <expr>
	        | 'not' <expr>
	        | '!' <expr>
	        | <value>

	<comparison> := <value> <op> <value>
	<op> := '==' | '!=' | '<' | '>' | '<=' | '>=' | 'contains'
	<value> := 'string' | "string" | number | true | false | null | identifier

Equality is string comparison, ordering is numeric comparison, and
'contains' is a substring test. Identifiers resolve against the vars map;
unresolved identifiers evaluate to their own name as a string literal.

# Boolean and string results

Eval returns the boolean result of a condition. Single values without an
operator are evaluated for truthiness (nil/false/""/0 are false).

EvalString returns the result as a string for branch dispatch: operator
expressions yield "true"/"false", and bare values yield the resolved
value's string form.

	vars := map[string]any{"status": "active", "count": 5}
	ok, _ := expr.Eval("status == 'active' and count > 0", vars) // true
	branch, _ := expr.EvalString("status", vars)                 // "active"
*/
package expr
