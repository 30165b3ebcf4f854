// Package prompts renders the instructions sent to each agent role.
//
// Every role has a built-in text/template compiled into the binary. A
// directory of <name>.tmpl files can override any of them; with watching
// enabled, edits are picked up without restarting a batch. The template
// set in effect is identified by Revision, which audit records carry so an
// accepted sentence can be traced back to the prompts that produced it.
package prompts
