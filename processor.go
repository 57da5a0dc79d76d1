// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import "context"

// Processor is a unit of work applied within a [Node]'s pipeline.
//
// A processor transforms one payload into another. Processors have no
// identity of their own: the owning node provides identity, status, and
// ordering. Within a pipeline each processor is fed the previous
// processor's output, the first one receiving the node's execution input.
//
// Processor is the payload-level specialization of [Func]; any
// Func[any, any] is a valid processor, including compositions built with
// [Compose2] and friends.
type Processor = Func[any, any]

// ProcessorFunc adapts a closure to the [Processor] interface.
type ProcessorFunc = FuncAdapter[any, any]

// PureProcessor lifts a pure transformation into a [Processor].
//
// Use this for processors that cannot fail:
//
//	double := dpcp.PureProcessor(func(v any) any { return v.(int) * 2 })
func PureProcessor(fn func(input any) any) Processor {
	return ProcessorFunc(func(ctx context.Context, input any) (any, error) {
		return fn(input), nil
	})
}
