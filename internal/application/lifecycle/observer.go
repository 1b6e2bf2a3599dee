package lifecycle

import "vconv/internal/domain/media"

// Observer receives lifecycle events. Hooks run on the controller's dispatch
// goroutine, in transition order, and may call back into the Controller.
type Observer interface {
	OnUploadStart()
	OnUploadProgress(percent int)
	OnUploadComplete()
	OnProcessingStart()
	OnProcessingComplete(downloadURL string)
	OnError(err *media.Error)
	OnReset()
}

// NopObserver implements every hook as a no-op. Embed it to override a subset.
type NopObserver struct{}

func (NopObserver) OnUploadStart()              {}
func (NopObserver) OnUploadProgress(int)        {}
func (NopObserver) OnUploadComplete()           {}
func (NopObserver) OnProcessingStart()          {}
func (NopObserver) OnProcessingComplete(string) {}
func (NopObserver) OnError(*media.Error)        {}
func (NopObserver) OnReset()                    {}

// Observers fans every event out to each member in order.
type Observers []Observer

func (o Observers) OnUploadStart() {
	for _, obs := range o {
		obs.OnUploadStart()
	}
}

func (o Observers) OnUploadProgress(percent int) {
	for _, obs := range o {
		obs.OnUploadProgress(percent)
	}
}

func (o Observers) OnUploadComplete() {
	for _, obs := range o {
		obs.OnUploadComplete()
	}
}

func (o Observers) OnProcessingStart() {
	for _, obs := range o {
		obs.OnProcessingStart()
	}
}

func (o Observers) OnProcessingComplete(downloadURL string) {
	for _, obs := range o {
		obs.OnProcessingComplete(downloadURL)
	}
}

func (o Observers) OnError(err *media.Error) {
	for _, obs := range o {
		obs.OnError(err)
	}
}

func (o Observers) OnReset() {
	for _, obs := range o {
		obs.OnReset()
	}
}
