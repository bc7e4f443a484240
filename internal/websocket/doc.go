// Package websocket pushes filter changes to open browser tabs.
//
// Every tab opens /ws and is registered under the session id from its
// cookie. When the selector service changes a session's filters it calls
// Hub.Notify, and only the tabs of that session receive a view_changed
// event and reload their table.
package websocket
