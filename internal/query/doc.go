// Package query provides a small typed selector language for host trees.
//
// Selectors address elements in a rendered tree the way a stripped-down CSS
// selector would. The harness uses them to aim dispatch steps and assertions,
// and the CLI uses them for inspect --select.
//
// GRAMMAR:
//
//	selector := step ( '>' step )*
//	step     := tag? simple*
//	simple   := '#'name | '.'name | '[' name ( '=' value )? ']' | ':nth(' n ')'
//
// A step is a conjunction of tests against one element. Steps are joined by
// the direct-child combinator only; there is no descendant combinator, so a
// selector always describes an explicit parent chain.
//
//	input                 first input element anywhere under the root
//	#email                the element mounted under the ref name "email"
//	ul.items > li:nth(1)  second li child of any ul carrying class "items"
//	form > [disabled]     direct form children with a disabled attribute
//
// SEALED INTERFACES:
//
// Selector and Pred are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so matchers and validators can
// type-switch exhaustively.
//
// MATCHING:
//
// The first step scans the whole subtree below the root in document order;
// every later step narrows to direct element children of the previous
// matches. Non-positional tests filter element by element; :nth(n) then
// picks the n-th survivor (0-based) within each parent's children. #name
// resolves against a mount's ref table when the Matcher carries one and
// against the id attribute otherwise.
package query
