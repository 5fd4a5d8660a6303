package stagefile

import (
	"errors"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/community-ingest/internal/model"
)

// ErrNoEntities is returned by ReadEntities when dir holds no entity file.
var ErrNoEntities = errors.New("stagefile: no entity files")

// EntityPath returns the JSON file holding one kind's entities inside dir.
func EntityPath(dir string, kind model.Kind) string {
	return filepath.Join(dir, string(kind)+".json")
}

// ReadEntities loads the per-kind files from dir. Missing kinds load as empty
// collections; a directory with none of them returns ErrNoEntities.
func ReadEntities(dir string) (*model.Entities, error) {
	ents := &model.Entities{}
	found := 0
	for _, read := range []struct {
		kind model.Kind
		dst  any
	}{
		{model.KindEvent, &ents.Events},
		{model.KindPlace, &ents.Places},
		{model.KindService, &ents.Services},
	} {
		ok, err := ReadJSONOptional(EntityPath(dir, read.kind), read.dst)
		if err != nil {
			return nil, err
		}
		if ok {
			found++
		}
	}
	if found == 0 {
		return nil, eris.Wrapf(ErrNoEntities, "stagefile: %s", dir)
	}
	if ents.Events == nil {
		ents.Events = []*model.Event{}
	}
	if ents.Places == nil {
		ents.Places = []*model.Place{}
	}
	if ents.Services == nil {
		ents.Services = []*model.Service{}
	}
	return ents, nil
}

// WriteEntities writes one file per kind into dir. Nil collections are
// written as empty arrays.
func WriteEntities(dir string, ents *model.Entities) error {
	events, places, services := ents.Events, ents.Places, ents.Services
	if events == nil {
		events = []*model.Event{}
	}
	if places == nil {
		places = []*model.Place{}
	}
	if services == nil {
		services = []*model.Service{}
	}
	if err := WriteJSON(EntityPath(dir, model.KindEvent), events); err != nil {
		return err
	}
	if err := WriteJSON(EntityPath(dir, model.KindPlace), places); err != nil {
		return err
	}
	return WriteJSON(EntityPath(dir, model.KindService), services)
}
