package engine

import (
	"fmt"
	"log"
	"strings"

	"floorwatch/diagnostics"
	"floorwatch/fleet"
	"floorwatch/protocol"
	"floorwatch/store"
)

// wireEventHandlers sets up the event chain:
// MachineControlled → activity, outbox, mirror, notification
// MachineUpdated → activity, outbox, mirror, notification on maintenance
// DiagnosticsCompleted → activity, outbox, notification
func (e *Engine) wireEventHandlers() {
	e.Events.SubscribeTypes(func(evt Event) {
		e.handleMachineControlled(evt.Payload.(MachineControlledEvent))
	}, EventMachineControlled)

	e.Events.SubscribeTypes(func(evt Event) {
		e.handleMachineUpdated(evt.Payload.(MachineUpdatedEvent))
	}, EventMachineUpdated)

	e.Events.SubscribeTypes(func(evt Event) {
		e.handleDiagnosticsCompleted(evt.Payload.(DiagnosticsCompletedEvent))
	}, EventDiagnosticsCompleted)
}

func (e *Engine) handleMachineControlled(c MachineControlledEvent) {
	e.debugFn("machine controlled: id=%d action=%s %s -> %s",
		c.After.ID, c.Action, c.Before.Status, c.After.Status)

	e.recordActivity(&store.Activity{
		MachineID: c.After.ID, MachineName: c.After.Name, Kind: store.ActivityControl,
		Action: string(c.Action), OldStatus: string(c.Before.Status), NewStatus: string(c.After.Status),
	})
	e.enqueue(protocol.TypeMachineControlled, &protocol.MachineControlled{
		MachineID: c.After.ID, Action: c.Action,
		OldStatus: c.Before.Status, NewStatus: c.After.Status, Machine: c.After,
	})
	e.mirrorMachine(c.After)

	switch {
	case c.Action == fleet.ActionRestart:
		e.notify(c.After.ID, store.NotifyInfo, "Machine Restarted",
			fmt.Sprintf("%s was restarted", c.After.Name))
	case c.After.Status == fleet.StatusIdle && c.Before.Status != fleet.StatusIdle:
		e.notify(c.After.ID, store.NotifyWarning, "Machine Stopped",
			fmt.Sprintf("%s was stopped and is now idle", c.After.Name))
	}
}

func (e *Engine) handleMachineUpdated(u MachineUpdatedEvent) {
	e.debugFn("machine updated: id=%d changed=%v", u.After.ID, u.Changed)

	e.recordActivity(&store.Activity{
		MachineID: u.After.ID, MachineName: u.After.Name, Kind: store.ActivitySettings,
		OldStatus: string(u.Before.Status), NewStatus: string(u.After.Status),
		Detail: strings.Join(u.Changed, ","),
	})
	e.enqueue(protocol.TypeMachineUpdated, &protocol.MachineUpdated{
		MachineID: u.After.ID, Changed: u.Changed, Machine: u.After,
	})
	e.mirrorMachine(u.After)

	if u.After.Status == fleet.StatusMaintenance && u.Before.Status != fleet.StatusMaintenance {
		e.notify(u.After.ID, store.NotifyWarning, "Machine Maintenance Required",
			fmt.Sprintf("%s was placed in maintenance", u.After.Name))
	}
}

func (e *Engine) handleDiagnosticsCompleted(d DiagnosticsCompletedEvent) {
	passed, warnings, failed := diagnostics.Summary(d.Results)
	e.debugFn("diagnostics completed: run=%s machine=%d passed=%d warnings=%d failed=%d",
		d.RunID, d.MachineID, passed, warnings, failed)

	name := fmt.Sprintf("Machine %d", d.MachineID)
	if m, err := e.fleet.Get(d.MachineID); err == nil {
		name = m.Name
	}
	summary := fmt.Sprintf("%d passed, %d warnings, %d failed", passed, warnings, failed)

	e.recordActivity(&store.Activity{
		MachineID: d.MachineID, MachineName: name, Kind: store.ActivityDiagnostics, Detail: summary,
	})
	e.enqueue(protocol.TypeDiagnosticsReport, &protocol.DiagnosticsReport{
		RunID: d.RunID, MachineID: d.MachineID,
		Passed: passed, Warnings: warnings, Failed: failed, Results: d.Results,
	})

	switch {
	case failed > 0:
		e.notify(d.MachineID, store.NotifyCritical, "Diagnostics Failed", name+": "+summary)
	case warnings > 0:
		e.notify(d.MachineID, store.NotifyWarning, "Diagnostics Warnings", name+": "+summary)
	default:
		e.notify(d.MachineID, store.NotifyInfo, "Diagnostics Passed", name+": all checks passed")
	}
}

func (e *Engine) recordActivity(a *store.Activity) {
	if _, err := e.db.InsertActivity(a); err != nil {
		log.Printf("record activity for machine %d: %v", a.MachineID, err)
	}
}

// enqueue queues an envelope for the outbox drainer. Nothing is queued
// without a messaging backend.
func (e *Engine) enqueue(msgType string, payload any) {
	if !e.cfg.MessagingEnabled() {
		return
	}
	env, err := protocol.NewEnvelope(msgType, protocol.StationAddress(e.cfg.StationID), payload)
	if err != nil {
		log.Printf("build %s envelope: %v", msgType, err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		log.Printf("encode %s envelope: %v", msgType, err)
		return
	}
	if _, err := e.db.EnqueueOutbox(e.cfg.Messaging.EventsTopic, data, msgType); err != nil {
		log.Printf("enqueue %s: %v", msgType, err)
	}
}

func (e *Engine) mirrorMachine(m fleet.Machine) {
	e.mirrorMu.RLock()
	mirror := e.mirror
	e.mirrorMu.RUnlock()
	if mirror == nil {
		return
	}
	if err := mirror.Machine(m, e.fleet.Stats()); err != nil {
		log.Printf("mirror machine %d: %v", m.ID, err)
	}
}

func (e *Engine) notify(machineID int, kind, title, description string) {
	id := int64(machineID)
	n := &store.Notification{Title: title, Description: description, Kind: kind, MachineID: &id}
	nid, err := e.db.CreateNotification(n)
	if err != nil {
		log.Printf("create notification %q: %v", title, err)
		return
	}
	created, err := e.db.GetNotification(nid)
	if err != nil {
		log.Printf("reload notification %d: %v", nid, err)
		return
	}
	unread, _ := e.db.CountUnreadNotifications()
	e.Events.Emit(Event{Type: EventNotificationCreated, Payload: NotificationCreatedEvent{
		Notification: *created, Unread: unread,
	}})
}
