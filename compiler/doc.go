/*

Object files

Description (yaml) ->
	obj.ParseDesc, Desc.Module ->
Module ->
	obj.EncodeModule ->
Object (bytes) ->
	obj.ParseModule ->
Module ->
	link.RelocateModule ->
Segment Images

Runtime arithmetic the generated code calls lives in arith,
port I/O in port.

*/
package compiler
