/*
Package host runs page scripts on behalf of remote sessions.

A Host connects to the relay over a ports.Conn, announces its pages and then
executes one script pass per InitializeClient or RerunPage it receives. Passes
of one session never overlap: a RerunPage that arrives while a pass is running
is merged into a single pending pass that starts right after the running one
has sent ScriptFinished. Different sessions run in parallel.

Every pass emits one RenderWidget per declared widget, in declaration order,
followed by ScriptFinished. A failing script emits an Exception before
ScriptFinished(failure) and leaves the previous tree in place.
*/
package host
