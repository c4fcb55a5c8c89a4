// Package protocol defines the messages exchanged over pipes between the
// broker and its services.
//
// Four kinds of pipe exist:
//
//   - the service pipe, broker to instance: StartRequest, ConnectRequest and
//     back StartResponse, QuitRequest;
//   - the connector pipe, instance to broker: ConnectCall, CloneConnector and
//     back ConnectReply;
//   - interface provider pipes carrying GetInterface;
//   - per-interface handles, whose messages belong to that interface.
//
// Messages that transfer endpoints implement pipe.Carrier so that dropping
// them closes what they carried.
package protocol
