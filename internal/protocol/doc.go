// Package protocol defines the wire format spoken between a driver and the
// controlling hub.
//
// Every frame is a single UTF-8 JSON object (the envelope) sent as one
// WebSocket text message:
//
//	{"kind":"req","id":12,"msg":"get_entity_states","msg_data":{}}
//	{"kind":"resp","req_id":12,"code":200,"msg":"entity_states","msg_data":[...]}
//	{"kind":"event","msg":"entity_change","cat":"ENTITY","msg_data":{...}}
//
// Requests carry a correlation number in "id"; the matching response echoes
// it in "req_id" together with a numeric status code. Events carry a category
// instead of an id.
//
// This package only describes and encodes frames. Routing lives in the api
// package.
package protocol
