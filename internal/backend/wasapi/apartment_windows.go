//go:build windows

package wasapi

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
	"github.com/vmorsell/app-mixer/internal/bridge"
	"github.com/vmorsell/app-mixer/internal/session"
)

// sFalse is returned by CoInitializeEx when the thread already has an
// apartment. It still has to be balanced with CoUninitialize.
const sFalse = 1

// apartment is the per-call context: a COM apartment thread holding the
// default render endpoint. Everything it acquired is released on that thread
// when the loop stops.
type apartment struct {
	loop   *loop
	device *wca.IMMDevice
}

func comInit() error {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if errors.As(err, &oleErr) && oleErr.Code() == sFalse {
			return nil
		}
		return fmt.Errorf("initialize COM: %w", err)
	}
	return nil
}

func (b *Backend) acquire() (*apartment, error) {
	a, err := bridge.Await(b.timeout, bridge.Op[*apartment]{
		Run:     openApartment,
		Discard: (*apartment).release,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrConnectUnavailable, err)
	}
	return a, nil
}

func openApartment() (*apartment, error) {
	l, err := startLoop(comInit, ole.CoUninitialize)
	if err != nil {
		return nil, err
	}

	a := &apartment{loop: l}
	err = l.call(func() error {
		var enumerator *wca.IMMDeviceEnumerator
		if err := wca.CoCreateInstance(
			wca.CLSID_MMDeviceEnumerator,
			0,
			wca.CLSCTX_ALL,
			wca.IID_IMMDeviceEnumerator,
			&enumerator,
		); err != nil {
			return fmt.Errorf("create device enumerator: %w", err)
		}
		l.onRelease(func() { enumerator.Release() })

		var device *wca.IMMDevice
		if err := enumerator.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &device); err != nil {
			return fmt.Errorf("get default render endpoint: %w", err)
		}
		l.onRelease(func() { device.Release() })
		a.device = device
		return nil
	})
	if err != nil {
		l.stop()
		return nil, err
	}
	return a, nil
}

func (a *apartment) release() {
	a.loop.stop()
}

// endpointVolume activates the endpoint volume interface of the default
// device. The caller releases it.
func (a *apartment) endpointVolume() (*wca.IAudioEndpointVolume, error) {
	var aev *wca.IAudioEndpointVolume
	if err := a.device.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return nil, fmt.Errorf("activate endpoint volume: %w", err)
	}
	return aev, nil
}

func (a *apartment) friendlyName() string {
	var ps *wca.IPropertyStore
	if err := a.device.OpenPropertyStore(wca.STGM_READ, &ps); err != nil {
		return ""
	}
	defer ps.Release()

	var pv wca.PROPVARIANT
	if err := ps.GetValue(&wca.PKEY_Device_FriendlyName, &pv); err != nil {
		return ""
	}
	return pv.String()
}

// audioSession is one entry of the default endpoint's session list with the
// interfaces needed to read and change it.
type audioSession struct {
	control  *wca.IAudioSessionControl
	control2 *wca.IAudioSessionControl2
	volume   *wca.ISimpleAudioVolume
}

func (s *audioSession) release() {
	if s.volume != nil {
		s.volume.Release()
	}
	if s.control2 != nil {
		s.control2.Release()
	}
	s.control.Release()
}

func (s *audioSession) isSystemSounds() bool {
	// S_OK means yes; S_FALSE comes back as an error.
	return s.control2.IsSystemSoundsSession() == nil
}

// eachSession walks the sessions on the default endpoint until fn returns
// false. Sessions whose control interfaces cannot be obtained are skipped.
// Every session is released before eachSession returns.
func (a *apartment) eachSession(fn func(s *audioSession) bool) error {
	var manager *wca.IAudioSessionManager2
	if err := a.device.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &manager); err != nil {
		return fmt.Errorf("activate session manager: %w", err)
	}
	defer manager.Release()

	var enumerator *wca.IAudioSessionEnumerator
	if err := manager.GetSessionEnumerator(&enumerator); err != nil {
		return fmt.Errorf("get session enumerator: %w", err)
	}
	defer enumerator.Release()

	var count int
	if err := enumerator.GetCount(&count); err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}

	for i := 0; i < count; i++ {
		s, err := openSession(enumerator, i)
		if err != nil {
			continue
		}
		more := fn(s)
		s.release()
		if !more {
			break
		}
	}
	return nil
}

func openSession(enumerator *wca.IAudioSessionEnumerator, i int) (*audioSession, error) {
	s := &audioSession{}
	if err := enumerator.GetSession(i, &s.control); err != nil {
		return nil, err
	}

	d, err := s.control.QueryInterface(wca.IID_IAudioSessionControl2)
	if err != nil {
		s.release()
		return nil, err
	}
	s.control2 = (*wca.IAudioSessionControl2)(unsafe.Pointer(d))

	d, err = s.control.QueryInterface(wca.IID_ISimpleAudioVolume)
	if err != nil {
		s.release()
		return nil, err
	}
	s.volume = (*wca.ISimpleAudioVolume)(unsafe.Pointer(d))
	return s, nil
}
