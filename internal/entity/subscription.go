package entity

// Subscribe copies each id found in available into configured, sharing the
// *Entity reference. Ids that are not available are logged and skipped.
// It returns the ids that could not be resolved.
func Subscribe(available, configured *Pool, ids []string) []string {
	var missing []string
	for _, id := range ids {
		e, ok := available.Get(id)
		if !ok {
			configured.logger.Warn("cannot subscribe entity: not available", "entity_id", id)
			missing = append(missing, id)
			continue
		}
		// Re-subscribing an already configured entity is not an error.
		if configured.Contains(id) {
			continue
		}
		configured.Add(e)
	}
	return missing
}

// UnsubscribeResult reports the outcome of an unsubscribe batch.
// Missing lists ids that were not configured; that alone is not a failure
// of the batch, but it makes the aggregate OK() false.
type UnsubscribeResult struct {
	Removed []string
	Missing []string
}

// OK reports whether every requested id was configured and removed.
func (r UnsubscribeResult) OK() bool {
	return len(r.Missing) == 0
}

// Unsubscribe removes each id from the pool. The whole batch is always
// processed; ids that were not present are reported in Missing.
func (p *Pool) Unsubscribe(ids []string) UnsubscribeResult {
	var res UnsubscribeResult
	for _, id := range ids {
		if p.Remove(id) {
			res.Removed = append(res.Removed, id)
			continue
		}
		p.logger.Debug("cannot unsubscribe entity: not configured", "pool", p.name, "entity_id", id)
		res.Missing = append(res.Missing, id)
	}
	return res
}
