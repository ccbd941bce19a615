/*
Package webaudio renders audio graphs in real time.

Concept

A Context owns a render goroutine and an output backend. Client code
creates nodes, connects them and automates their params from any
ordinary goroutine, the control side. Every call is validated on the
control side and then handed over to the render goroutine as a
message, so the render goroutine never blocks and never shares state
behind a lock:

    control goroutine -> bridge -> render goroutine -> backend

The render goroutine renders one quantum of 128 frames per device
demand. Each quantum it drains queued messages, retires finished nodes,
refreshes the processing order if the topology changed, processes
nodes in order and delivers the destination buffer to the backend.

Graphs

Nodes are connected output to input or output to param. Cycles are
allowed: edges that close a cycle deliver the output of the previous
quantum. Released nodes are retired lazily, once they have no inputs
and report no tail.

Backpressure

Playback underrun substitutes silence, overrun drops the newest frame.
Capture drops the newest frame when the queue is full and reads silence
when it's empty. Faults are counted in metric and logged at debug level.
*/
package webaudio
