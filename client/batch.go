package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caio-sobreiro/dicommwl/types"
)

// BatchResult is the outcome of one C-FIND of a batch.
type BatchResult struct {
	Request *CFindRequest
	Status  uint16 // final status; zero when Err is set
	Matches int
	Err     error
}

// ResponseFunc observes every pending response of a batch. It is called from the
// association's reader goroutine, one response at a time.
type ResponseFunc func(req *CFindRequest, rsp *CFindResponse)

// pendingFind tracks an outstanding request until its final response.
type pendingFind struct {
	result *BatchResult
	done   chan struct{}
	window chan struct{}
}

func (p *pendingFind) finish(status uint16, err error) {
	p.result.Status = status
	p.result.Err = err
	<-p.window
	close(p.done)
}

type batch struct {
	assoc      *Association
	onResponse ResponseFunc

	mu       sync.Mutex
	pending  map[uint16]*pendingFind
	stopping bool
	failed   error
}

// SendCFindBatch sends all requests on the association, keeping at most the negotiated
// number of operations outstanding, and waits for every final response. Responses are
// routed to their request by message ID.
//
// When ctx is canceled, requests not yet sent are skipped and a C-CANCEL is sent for
// every outstanding one; the batch then waits for their final (Cancel) responses. A
// failed read fails every outstanding request. The returned error is the first
// association-level failure, or ctx.Err().
func (a *Association) SendCFindBatch(ctx context.Context, reqs []*CFindRequest, onResponse ResponseFunc) ([]*BatchResult, error) {
	results := make([]*BatchResult, len(reqs))
	for i, req := range reqs {
		results[i] = &BatchResult{Request: req}
	}
	if len(reqs) == 0 {
		return results, nil
	}

	windowSize := int(a.asyncOps.MaxInvoked)
	if windowSize == 0 || windowSize > len(reqs) {
		windowSize = len(reqs)
	}
	window := make(chan struct{}, windowSize)

	b := &batch{
		assoc:      a,
		onResponse: onResponse,
		pending:    make(map[uint16]*pendingFind),
	}

	readerErr := make(chan error, 1)
	go func() {
		readerErr <- b.read()
	}()

	var sent []*pendingFind
	var batchErr error

send:
	for i, req := range reqs {
		select {
		case window <- struct{}{}:
		case <-ctx.Done():
			batchErr = ctx.Err()
			for _, skipped := range results[i:] {
				skipped.Err = ctx.Err()
			}
			break send
		}

		presContextID, command, datasetData, err := a.prepare(req)
		if err != nil {
			<-window
			results[i].Err = err
			continue
		}

		p := &pendingFind{result: results[i], done: make(chan struct{}), window: window}
		b.mu.Lock()
		if b.failed != nil {
			b.mu.Unlock()
			<-window
			for _, skipped := range results[i:] {
				skipped.Err = b.failed
			}
			batchErr = b.failed
			break
		}
		if _, dup := b.pending[req.MessageID]; dup {
			b.mu.Unlock()
			<-window
			results[i].Err = fmt.Errorf("message ID %d is already outstanding", req.MessageID)
			continue
		}
		b.pending[req.MessageID] = p
		b.mu.Unlock()

		if err := a.send(presContextID, command, datasetData); err != nil {
			b.mu.Lock()
			_, owned := b.pending[req.MessageID]
			delete(b.pending, req.MessageID)
			b.mu.Unlock()
			if owned {
				p.finish(0, fmt.Errorf("failed to send C-FIND request: %w", err))
			}
			sent = append(sent, p)
			batchErr = err
			break
		}
		sent = append(sent, p)

		a.logger.Debug("C-FIND sent",
			"message_id", req.MessageID,
			"sop_class", types.SOPClassName(req.SOPClassUID))
	}

	canceled := ctx.Err() != nil && batchErr == ctx.Err()
	if canceled {
		b.cancelOutstanding()
	}

	for _, p := range sent {
		if canceled {
			<-p.done
			continue
		}
		select {
		case <-p.done:
		case <-ctx.Done():
			canceled = true
			if batchErr == nil {
				batchErr = ctx.Err()
			}
			b.cancelOutstanding()
			<-p.done
		}
	}

	// Every request has its final response; unblock the reader.
	b.mu.Lock()
	b.stopping = true
	a.conn.SetReadDeadline(time.Now())
	b.mu.Unlock()
	if err := <-readerErr; err != nil && batchErr == nil {
		batchErr = err
	}
	a.conn.SetReadDeadline(time.Time{})

	return results, batchErr
}

// read routes responses until the batch stops or the association fails.
func (b *batch) read() error {
	for {
		b.mu.Lock()
		if b.stopping {
			b.mu.Unlock()
			return nil
		}
		b.assoc.conn.SetReadDeadline(time.Now().Add(b.assoc.readTimeout))
		b.mu.Unlock()

		received, err := b.assoc.reader.Receive()
		if err != nil {
			b.mu.Lock()
			stopping := b.stopping
			b.mu.Unlock()
			if stopping {
				return nil
			}
			b.failAll(err)
			return err
		}

		rsp, err := b.assoc.decodeResponse(received)
		if err != nil {
			b.failAll(err)
			return err
		}

		b.mu.Lock()
		p, ok := b.pending[rsp.MessageID]
		if ok && !rsp.Pending() {
			delete(b.pending, rsp.MessageID)
		}
		b.mu.Unlock()

		if !ok {
			b.assoc.logger.Warn("Response for unknown message ID", "message_id", rsp.MessageID)
			continue
		}

		if rsp.Pending() {
			p.result.Matches++
			if b.onResponse != nil {
				b.onResponse(p.result.Request, rsp)
			}
			continue
		}

		var statusErr error
		if rsp.Status != types.StatusSuccess && rsp.Status != types.StatusCancel {
			statusErr = fmt.Errorf("C-FIND failed with status 0x%04X: %s", rsp.Status, rsp.ErrorComment)
		}
		p.finish(rsp.Status, statusErr)
	}
}

// failAll resolves every outstanding request with err.
func (b *batch) failAll(err error) {
	b.mu.Lock()
	outstanding := b.pending
	b.pending = make(map[uint16]*pendingFind)
	b.failed = err
	b.mu.Unlock()

	for _, p := range outstanding {
		p.finish(0, err)
	}
}

// cancelOutstanding sends a C-CANCEL for every request still waiting for its final response.
func (b *batch) cancelOutstanding() {
	b.mu.Lock()
	outstanding := make([]*CFindRequest, 0, len(b.pending))
	for _, p := range b.pending {
		outstanding = append(outstanding, p.result.Request)
	}
	b.mu.Unlock()

	for _, req := range outstanding {
		if err := b.assoc.SendCCancel(req.MessageID, req.SOPClassUID); err != nil {
			b.assoc.logger.Warn("Failed to cancel C-FIND", "message_id", req.MessageID, "error", err)
		}
	}
}
