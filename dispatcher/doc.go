// Package dispatcher
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Keyed affinity dispatch onto a fixed pool of single-consumer workers.
//
// A Dispatcher hashes every key to a 32-bit code and scales it onto a routing
// table of WorkerCount x NodesPerWorker slots, each bound to one worker. The
// same key always reaches the same worker, so values of one key are handled
// in the order they were dispatched from one goroutine. Unrelated keys spread
// uniformly across workers.
//
//	d, err := dispatcher.New[Order]("orders", handler, dispatcher.XXHash{},
//		dispatcher.WithWorkerCount(4),
//		dispatcher.WithChannelType(api.MPSC),
//	)
//	if err != nil {
//		return err
//	}
//	d.Start()
//	defer d.Shutdown()
//	err = d.DispatchString(order.Customer, order)
package dispatcher
